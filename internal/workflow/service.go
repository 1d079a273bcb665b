// Package workflow is the orchestration layer above the repositories.
//
// It owns the policies the repositories deliberately leave out: generated
// document IDs, the rejected-status observations rule, conclusion
// timestamps for finished processes, file hashing on upload, and Unicode
// normalization of free-text input.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tradeledger/internal/document"
	"github.com/roach88/tradeledger/internal/fault"
	"github.com/roach88/tradeledger/internal/ledger"
	"github.com/roach88/tradeledger/internal/repository"
)

// Service runs workflow operations against a repository.Ledger.
type Service struct {
	ledger *repository.Ledger
	ids    IDGenerator
	now    func() time.Time
	logger *slog.Logger

	policyMu sync.Mutex
	policy   *Policy
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator sets the generator for DID_/PID_ ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithClock sets the clock used for conclusion dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Service. It fails only if the embedded policy does not
// compile.
func New(l *repository.Ledger, opts ...Option) (*Service, error) {
	policy, err := LoadPolicy()
	if err != nil {
		return nil, err
	}
	s := &Service{
		ledger: l,
		ids:    UUIDv7Generator{},
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		policy: policy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ledger returns the underlying repositories.
func (s *Service) Ledger() *repository.Ledger { return s.ledger }

// normalize returns s in Unicode NFC so that visually identical input is
// stored as identical bytes.
func normalize(s string) string {
	return norm.NFC.String(s)
}

// AssetRequest describes an asset to register. An empty ID is generated.
// An empty CreatedBy falls back to the submitting identity.
type AssetRequest struct {
	ID        string
	FileName  string
	FileHash  string
	CreatedBy string
}

// CreateAsset registers an asset.
func (s *Service) CreateAsset(ctx context.Context, req AssetRequest) (*document.Asset, error) {
	id := req.ID
	if id == "" {
		id = AssetIDPrefix + s.ids.Generate()
	}
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = ledger.SubmitterFrom(ctx)
	}

	asset, err := s.ledger.Assets().CreateAsset(ctx, id, normalize(req.FileName), req.FileHash, normalize(createdBy))
	if err != nil {
		return nil, err
	}
	s.logger.Info("asset registered", "id", asset.ID, "file_hash", asset.FileHash)
	return asset, nil
}

// RegisterFile hashes the content read from r and registers it as a new
// asset named name.
func (s *Service) RegisterFile(ctx context.Context, name string, r io.Reader, createdBy string) (*document.Asset, error) {
	hash, err := document.HashContent(r)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", name, err)
	}
	return s.CreateAsset(ctx, AssetRequest{FileName: name, FileHash: hash, CreatedBy: createdBy})
}

// CreateProcess registers a process. An empty ID is generated; an empty
// CreatedBy falls back to the submitting identity.
func (s *Service) CreateProcess(ctx context.Context, req repository.NewProcess) (*document.Process, error) {
	if req.ID == "" {
		req.ID = ProcessIDPrefix + s.ids.Generate()
	}
	if req.CreatedBy == "" {
		req.CreatedBy = ledger.SubmitterFrom(ctx)
	}
	req.Name = normalize(req.Name)
	req.Description = normalize(req.Description)
	req.Importer = normalize(req.Importer)
	req.Exporter = normalize(req.Exporter)
	req.Origin = normalize(req.Origin)
	req.Destination = normalize(req.Destination)
	req.Stage = normalize(req.Stage)
	req.CreatedBy = normalize(req.CreatedBy)

	process, err := s.ledger.Processes().CreateProcess(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("process registered", "id", process.ID, "stage", process.Stage)
	return process, nil
}

// AddItem adds a line item to a process.
func (s *Service) AddItem(ctx context.Context, processID string, item repository.NewItem) (*document.Process, error) {
	item.Description = normalize(item.Description)
	item.MesUnit = normalize(item.MesUnit)
	return s.ledger.Processes().AddItemToProcess(ctx, processID, item)
}

// UpdateStatus validates the change against the status policy and applies
// it. Observations are only kept for rejections.
func (s *Service) UpdateStatus(ctx context.Context, processID string, change StatusChange) (*document.Process, error) {
	change.Observations = normalize(change.Observations)

	s.policyMu.Lock()
	err := s.policy.CheckStatus(change)
	s.policyMu.Unlock()
	if err != nil {
		if fe, ok := err.(*fault.Error); ok {
			fe.Key = processID
		}
		return nil, err
	}

	observations := ""
	if change.NewStatus == StatusRejected {
		observations = change.Observations
	}
	return s.ledger.Processes().UpdateProcessStatus(ctx, processID, change.NewStatus, change.ApprovedBy, observations)
}

// AdvanceStage moves a process to stage. Reaching "Fin" stamps the
// conclusion date with the current time.
func (s *Service) AdvanceStage(ctx context.Context, processID, stage string) (*document.Process, error) {
	stage = normalize(stage)
	concludedDate := ""
	if stage == document.StageFinished {
		concludedDate = document.FormatDate(s.now())
	}
	return s.ledger.Processes().UpdateProcessStage(ctx, processID, stage, concludedDate)
}
