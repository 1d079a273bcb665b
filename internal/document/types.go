package document

import "time"

// DocType is the discriminator stored in every record.
type DocType string

const (
	DocTypeAsset   DocType = "asset"
	DocTypeProcess DocType = "process"
)

// Document is a sealed interface over the record kinds stored in the ledger.
type Document interface {
	Kind() DocType
	document() // Sealed
}

// Asset is a file registered in the ledger by content hash. Assets are
// immutable after creation.
type Asset struct {
	ID           string  `json:"ID"`
	FileHash     string  `json:"FileHash"`
	FileName     string  `json:"FileName"`
	CreatedBy    string  `json:"CreatedBy"`
	CreationDate string  `json:"CreationDate"`
	DocType      DocType `json:"docType"`
}

func (*Asset) document() {}

// Kind returns DocTypeAsset.
func (*Asset) Kind() DocType { return DocTypeAsset }

// Process is an import/export workflow record.
//
// TotalValue and TotalItems are running totals maintained by item add and
// remove, not recomputed from ItemsList.
type Process struct {
	ID             string   `json:"ID"`
	Name           string   `json:"Name"`
	Description    string   `json:"Description"`
	Importer       string   `json:"Importer"`
	Exporter       string   `json:"Exporter"`
	Currency       string   `json:"Currency"`
	Origin         string   `json:"Origin"`
	Destination    string   `json:"Destination"`
	ItemsList      []Item   `json:"ItemsList"`
	TotalValue     float64  `json:"TotalValue"`
	TotalItems     int64    `json:"TotalItems"`
	Assets         []string `json:"Assets"`
	Stage          string   `json:"Stage"`
	CreatedBy      string   `json:"CreatedBy"`
	ApprovedBy     string   `json:"ApprovedBy"`
	RejectedBy     string   `json:"RejectedBy"`
	ApprovalStatus string   `json:"ApprovalStatus"`
	Observations   string   `json:"Observations"`
	CreatedDate    string   `json:"CreatedDate"`
	ConcludedDate  string   `json:"ConcludedDate"`
	DocType        DocType  `json:"docType"`
}

func (*Process) document() {}

// Kind returns DocTypeProcess.
func (*Process) Kind() DocType { return DocTypeProcess }

// StageFinished is the stage that concludes a process.
const StageFinished = "Fin"

// Item is a line item embedded in a Process.
type Item struct {
	ItemID      string  `json:"itemID"`
	CFF         string  `json:"CFF"`
	PartNo      string  `json:"partNo"`
	Description string  `json:"description"`
	CatMat      string  `json:"catMat"`
	MesUnit     string  `json:"mesUnit"`
	Quantity    int64   `json:"quantity"`
	UnitValue   float64 `json:"unitValue"`
	TotalValue  float64 `json:"totalValue"`
}

// NewItem builds an item with its total computed once from quantity and
// unit value.
func NewItem(itemID, cff, partNo, description, catMat, mesUnit string, quantity int64, unitValue float64) Item {
	return Item{
		ItemID:      itemID,
		CFF:         cff,
		PartNo:      partNo,
		Description: description,
		CatMat:      catMat,
		MesUnit:     mesUnit,
		Quantity:    quantity,
		UnitValue:   unitValue,
		TotalValue:  float64(quantity) * unitValue,
	}
}

// Raw is a stored value that is not an Asset or Process: either bytes that
// failed to decode or a record with an unrecognized docType.
type Raw struct {
	DocType DocType
	Bytes   []byte
}

func (*Raw) document() {}

// Kind returns the discriminator found in the record, or "" if none.
func (r *Raw) Kind() DocType { return r.DocType }

// String returns the raw bytes as text.
func (r *Raw) String() string { return string(r.Bytes) }

// DateLayout renders document dates as ISO 8601 UTC with milliseconds.
const DateLayout = "2006-01-02T15:04:05.000Z"

// FormatDate renders t with DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
