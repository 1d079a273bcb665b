package workflow

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/tradeledger/internal/fault"
)

//go:embed policy.cue
var policySource string

// StatusChange is a requested process status update.
type StatusChange struct {
	NewStatus    string `json:"newStatus"`
	ApprovedBy   string `json:"approvedBy"`
	Observations string `json:"observations"`
}

// StatusRejected requires observations.
const StatusRejected = "rejected"

// Policy validates workflow requests against the embedded CUE definitions.
//
// Thread-safety: a cue.Context is not safe for concurrent use, so Check
// calls are serialized by the Service that owns the Policy.
type Policy struct {
	ctx          *cue.Context
	statusChange cue.Value
}

// fieldMessages maps policy fields to the message reported on violation.
var fieldMessages = map[string]string{
	"newStatus":    "newStatus is required",
	"observations": "Observations are required for rejected status",
}

// LoadPolicy compiles the embedded policy.
func LoadPolicy() (*Policy, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(policySource, cue.Filename("policy.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}

	def := v.LookupPath(cue.ParsePath("#StatusChange"))
	if !def.Exists() {
		return nil, fmt.Errorf("policy: #StatusChange not defined")
	}
	return &Policy{ctx: ctx, statusChange: def}, nil
}

// CheckStatus reports a ValidationFailed error when change violates the
// status policy.
func (p *Policy) CheckStatus(change StatusChange) error {
	v := p.statusChange.Unify(p.ctx.Encode(change))
	err := v.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	for _, e := range cueerrors.Errors(err) {
		path := e.Path()
		if len(path) == 0 {
			continue
		}
		field := path[len(path)-1]
		if msg, ok := fieldMessages[field]; ok {
			return fault.NewValidation(field, msg)
		}
	}
	return &fault.Error{
		Code:    fault.CodeValidationFailed,
		Message: "status change rejected by policy",
		Err:     err,
	}
}
