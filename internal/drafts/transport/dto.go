package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MarginType defines how an option's margin value is interpreted.
type MarginType string

const (
	MarginPercentage MarginType = "percentage"
	MarginAmount     MarginType = "amount"
)

// OptionStatus defines the lifecycle state of a priced option.
type OptionStatus string

const (
	OptionStatusDraft OptionStatus = "draft"
	OptionStatusReady OptionStatus = "ready"
	OptionStatusSent  OptionStatus = "sent"
)

// DraftStatus defines the lifecycle state of a draft quote.
type DraftStatus string

const (
	DraftStatusOpen      DraftStatus = "open"
	DraftStatusFinalized DraftStatus = "finalized"
)

// Wizard step names. Each step maps to one JSON sub-object on the draft.
const (
	StepCustomer   = "customer"
	StepShipment   = "shipment"
	StepHaulage    = "haulage"
	StepSeafreight = "seafreight"
	StepMisc       = "misc"
)

// ── Step payloads ─────────────────────────────────────────────────────────────

// CustomerStep holds the customer details collected in the first wizard step.
type CustomerStep struct {
	CompanyName string `json:"companyName"`
	ContactName string `json:"contactName"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone"`
}

// ContainerLine is one container type/quantity row on a shipment.
type ContainerLine struct {
	ContainerType string `json:"containerType"`
	Quantity      int    `json:"quantity" validate:"min=0"`
}

// ShipmentStep holds routing and cargo details.
type ShipmentStep struct {
	Mode            string          `json:"mode" validate:"omitempty,oneof=sea air road"`
	OriginPort      string          `json:"originPort"`
	DestinationPort string          `json:"destinationPort"`
	Commodity       string          `json:"commodity"`
	Containers      []ContainerLine `json:"containers" validate:"omitempty,dive"`
}

// HaulageLeg is one selected inland transport leg.
type HaulageLeg struct {
	Description    string `json:"description"`
	From           string `json:"from"`
	To             string `json:"to"`
	UnitPriceCents int64  `json:"unitPriceCents" validate:"min=0"`
}

// Surcharge is one surcharge line on a sea-freight leg (BAF, THC, ...).
type Surcharge struct {
	Code        string `json:"code"`
	AmountCents int64  `json:"amountCents" validate:"min=0"`
}

// SeafreightLeg is one selected ocean leg, priced per container.
type SeafreightLeg struct {
	Carrier        string          `json:"carrier"`
	OriginPort     string          `json:"originPort"`
	DestinationPort string         `json:"destinationPort"`
	BasePriceCents int64           `json:"basePriceCents" validate:"min=0"`
	Surcharges     []Surcharge     `json:"surcharges" validate:"omitempty,dive"`
	Containers     []ContainerLine `json:"containers" validate:"omitempty,dive"`
}

// MiscService is one selected ancillary service (customs, documentation, ...).
// When both prices are present the unit price wins.
type MiscService struct {
	Code            string `json:"code"`
	Description     string `json:"description"`
	UnitPriceCents  *int64 `json:"unitPriceCents" validate:"omitempty,min=0"`
	TotalPriceCents *int64 `json:"totalPriceCents" validate:"omitempty,min=0"`
}

// HaulageStep holds the selected haulage legs.
type HaulageStep struct {
	Legs []HaulageLeg `json:"legs" validate:"omitempty,dive"`
}

// SeafreightStep holds the selected sea-freight legs.
type SeafreightStep struct {
	Legs []SeafreightLeg `json:"legs" validate:"omitempty,dive"`
}

// MiscStep holds the selected miscellaneous services.
type MiscStep struct {
	Services []MiscService `json:"services" validate:"omitempty,dive"`
}

// WizardState tracks the user's progress through the wizard.
type WizardState struct {
	CurrentStep    string   `json:"currentStep"`
	CompletedSteps []string `json:"completedSteps"`
}

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateDraftRequest is the request body for creating a new draft.
type CreateDraftRequest struct {
	RequestID string        `json:"requestId"`
	EmailUser string        `json:"emailUser" validate:"omitempty,email"`
	Currency  string        `json:"currency" validate:"omitempty,len=3"`
	Customer  *CustomerStep `json:"customer"`
}

// UpdateStepRequest shallow-merges a patch into one wizard step.
// ExpectedVersion is the optimistic-concurrency token; a stale value is
// rejected with a conflict instead of silently overwriting.
type UpdateStepRequest struct {
	ExpectedVersion int                        `json:"expectedVersion" validate:"min=1"`
	Patch           map[string]json.RawMessage `json:"patch" validate:"required"`
}

// OptionPricingInput is the priced selection bundle for one option.
type OptionPricingInput struct {
	Haulage    []HaulageLeg    `json:"haulage" validate:"omitempty,dive"`
	Seafreight []SeafreightLeg `json:"seafreight" validate:"omitempty,dive"`
	Misc       []MiscService   `json:"misc" validate:"omitempty,dive"`
	MarginType MarginType      `json:"marginType" validate:"omitempty,oneof=percentage amount"`
	MarginValue int64          `json:"marginValue" validate:"min=0"`
}

// AddOptionRequest is the request body for adding a priced option to a draft.
type AddOptionRequest struct {
	Description string `json:"description"`
	OptionPricingInput
}

// UpdateOptionRequest is the request body for editing an option's selections
// or margin. Totals are always recomputed server-side.
type UpdateOptionRequest struct {
	Description *string       `json:"description"`
	Status      *OptionStatus `json:"status" validate:"omitempty,oneof=draft ready sent"`
	Pricing     *OptionPricingInput `json:"pricing"`
}

// SyncRequest is the request body for a manual sync.
type SyncRequest struct {
	Direction string `json:"direction" validate:"required,oneof=to-db from-db both"`
}

// ListDraftsRequest defines the query parameters for listing drafts.
type ListDraftsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=open finalized"`
	Search   string `form:"search"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// OptionBreakdown is the deterministic cost breakdown of one option.
type OptionBreakdown struct {
	HaulageTotalCents    int64 `json:"haulageTotalCents"`
	SeafreightTotalCents int64 `json:"seafreightTotalCents"`
	MiscTotalCents       int64 `json:"miscTotalCents"`
	SubtotalCents        int64 `json:"subtotalCents"`
	MarginAmountCents    int64 `json:"marginAmountCents"`
	GrandTotalCents      int64 `json:"grandTotalCents"`
}

// OptionResponse is the response for a priced option.
type OptionResponse struct {
	ID          uuid.UUID    `json:"id"`
	Description string       `json:"description"`
	MarginType  MarginType   `json:"marginType"`
	MarginValue int64        `json:"marginValue"`
	Breakdown   OptionBreakdown `json:"breakdown"`
	Status      OptionStatus `json:"status"`
	IsPreferred bool         `json:"isPreferred"`
	SortOrder   int          `json:"sortOrder"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// DraftResponse is the response for a draft quote.
type DraftResponse struct {
	ID          uuid.UUID        `json:"id"`
	RequestID   string           `json:"requestId,omitempty"`
	EmailUser   string           `json:"emailUser,omitempty"`
	RemoteID    string           `json:"remoteId,omitempty"`
	RemoteState string           `json:"remoteState"`
	Currency    string           `json:"currency"`
	Status      DraftStatus      `json:"status"`
	Version     int              `json:"version"`
	Dirty       bool             `json:"dirty"`
	Customer    *CustomerStep    `json:"customer,omitempty"`
	Shipment    *ShipmentStep    `json:"shipment,omitempty"`
	Haulage     *HaulageStep     `json:"haulage,omitempty"`
	Seafreight  *SeafreightStep  `json:"seafreight,omitempty"`
	Misc        *MiscStep        `json:"misc,omitempty"`
	WizardState *WizardState     `json:"wizardState,omitempty"`
	Options     []OptionResponse `json:"options"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ListDraftsResponse is the paginated draft list response.
type ListDraftsResponse struct {
	Items      []DraftResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

// SyncErrorResponse is one recorded sync failure.
type SyncErrorResponse struct {
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

// SyncStatusResponse mirrors the ephemeral per-draft sync status.
type SyncStatusResponse struct {
	IsSyncing         bool                `json:"isSyncing"`
	LastSyncedAt      *time.Time          `json:"lastSyncedAt,omitempty"`
	LastSyncDirection string              `json:"lastSyncDirection,omitempty"`
	PendingChanges    []string            `json:"pendingChanges"`
	SyncErrors        []SyncErrorResponse `json:"syncErrors"`
}
