// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// The signal registry adds a second collaborator next to the repository: the
// object store holding the CSV files that signals point at. The service is the
// only layer that talks to both, so every cross-check between them (does the
// file exist? is anyone else still using it?) lives here.
//
// DEPENDENCY INJECTION:
// SignalService takes a repository.SignalRepository and an objectstore.Store
// (interfaces), NOT *sqlite.DB or an S3 client. Tests pass in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/signal-registry/internal/apperror"
	"github.com/sakif/signal-registry/internal/auth"
	"github.com/sakif/signal-registry/internal/model"
	"github.com/sakif/signal-registry/internal/objectstore"
	"github.com/sakif/signal-registry/internal/repository"
	"github.com/sakif/signal-registry/internal/signalid"
)

// csvMarker must appear in every object key a signal is allowed to reference.
const csvMarker = ".csv"

// MinColumns is the fewest CSV columns a signal file needs to be usable.
const MinColumns = 2

// Client-facing messages.
//
// Existing clients match on this text, so it is kept exactly as it has always
// been returned, including the odd "Create:" prefix on some modify/read/delete
// failures and the unbalanced quote in the duplicate message.
const (
	MsgCreatePass          = "Create: Pass!"
	MsgCreateLackObjectKey = "Create: Fail! Lack of S3 filename"
	MsgCreateBadObjectKey  = "Create: Fail! S3 filename format should be *.csv"
	MsgCreateLackUserID    = "Create: Fail! Lack of Signal ID"
	MsgCreateInvalidID     = "Create: Fail! Invalid signal ID"
	MsgCreateDuplicate     = "Create: Fail! (User ID, Signal ID) is 'duplicate"
	msgCreateObjectMissing = `Create: Fail! S3 file "%s" is not exist: %v`

	MsgModifyPass     = "Modify: Pass!"
	MsgModifyLackIDs  = "Modify: Fail! Lack of User ID, Signal ID"
	MsgModifyInvalid  = "Modify: Fail! Invalid signal ID"
	MsgModifyNotExist = "Modify: Fail! (User ID, Signal ID) is not exist"

	MsgReadPass          = "Read: Pass!"
	MsgReadFewColumns    = "Data has less than 2 columns "
	MsgReadLackIDs       = "Read: Fail! Lack of User ID or Signal ID"
	MsgReadNotExist      = "Read: Fail! (User ID, Signal ID) is not exist"
	msgReadObjectMissing = `Read: Fail! S3 file "%s" is not exist: %v`
	msgReadNotUTF8       = `Read: Fail! S3 file "%s" is not valid UTF-8`

	MsgDeletePass     = "Delete: Pass!"
	MsgDeleteLackIDs  = "Delete: Fail! Lack of User ID or Signal ID"
	MsgDeleteNotExist = "Delete: Fail! (User ID, Signal ID) is not exist"

	// MsgInvalidID is what read and delete report for a non-numeric signal ID.
	MsgInvalidID = MsgCreateInvalidID
)

// AllocationScope selects which existing IDs new identifiers are allocated around.
type AllocationScope string

const (
	// ScopeGlobal allocates the smallest ID unused by ANY user.
	ScopeGlobal AllocationScope = "global"
	// ScopeUser allocates the smallest ID unused by the requesting user.
	ScopeUser AllocationScope = "user"
)

// SignalService implements the create/modify/read/delete rules for signals.
// It keeps no state between calls.
type SignalService struct {
	repo    repository.SignalRepository
	objects objectstore.Store
	scope   AllocationScope
	logger  *slog.Logger
}

// NewSignalService creates a new SignalService.
// An empty scope means ScopeGlobal.
func NewSignalService(
	repo repository.SignalRepository,
	objects objectstore.Store,
	scope AllocationScope,
	logger *slog.Logger,
) *SignalService {
	if scope == "" {
		scope = ScopeGlobal
	}
	return &SignalService{
		repo:    repo,
		objects: objects,
		scope:   scope,
		logger:  logger,
	}
}

// CreateInput is the data needed to create a signal.
// There is no SignalID field: identifiers are always allocated here.
type CreateInput struct {
	UserID      string
	Description string
	// ObjectKey is nil when the client did not send one at all.
	ObjectKey *string
}

// CreateResult is returned by a successful Create.
type CreateResult struct {
	Message string
	Signal  *model.Signal
}

// Create validates the input, allocates a fresh signal ID, checks the object
// exists and stores the signal.
//
// The checks run in a fixed order and stop at the first failure, because each
// failure has its own client-facing message:
//
//  1. object key present
//  2. object key names a CSV file
//  3. allocate the ID, then: user ID present
//  4. allocated ID valid
//  5. (user, ID) not taken
//  6. object exists in the bucket
func (s *SignalService) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if in.ObjectKey == nil {
		return nil, apperror.MissingField("s3", MsgCreateLackObjectKey)
	}
	key := *in.ObjectKey
	if !strings.Contains(key, csvMarker) {
		return nil, apperror.InvalidFormat("s3", MsgCreateBadObjectKey)
	}

	id, err := s.allocate(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.UserID == "" {
		return nil, apperror.MissingField("user_id", MsgCreateLackUserID)
	}
	if id < signalid.MinID {
		return nil, apperror.InvalidFormat("signal_id", MsgCreateInvalidID)
	}

	exists, err := s.repo.Exists(ctx, in.UserID, id)
	if err != nil {
		return nil, fmt.Errorf("creating signal: %w", err)
	}
	if exists {
		return nil, apperror.ConflictMessage(MsgCreateDuplicate)
	}

	if err := s.checkObject(ctx, key, msgCreateObjectMissing); err != nil {
		return nil, err
	}

	signal := &model.Signal{
		UserID:      in.UserID,
		SignalID:    id,
		Description: in.Description,
		ObjectKey:   key,
	}
	if err := s.repo.Insert(ctx, signal); err != nil {
		// Lost a race with a concurrent create for the same pair.
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage(MsgCreateDuplicate)
		}
		s.logger.Error("failed to insert signal",
			slog.String("userID", in.UserID),
			slog.Int("signalID", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating signal: %w", err)
	}

	s.logger.Info("signal created",
		slog.String("userID", signal.UserID),
		auth.SubjectAttr(ctx),
		slog.Int("signalID", signal.SignalID),
		slog.String("objectKey", signal.ObjectKey),
	)

	return &CreateResult{Message: MsgCreatePass, Signal: signal}, nil
}

// allocate picks the next signal ID according to the configured scope.
//
// NOTE: nothing stops two concurrent creates from picking the same ID. The
// second insert then fails on the primary key and is reported as a duplicate.
func (s *SignalService) allocate(ctx context.Context, userID string) (int, error) {
	owner := ""
	if s.scope == ScopeUser {
		owner = userID
	}
	ids, err := s.repo.ListSignalIDs(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("allocating signal id: %w", err)
	}
	return signalid.Allocate(ids), nil
}

// ModifyInput is the data needed to change a signal.
type ModifyInput struct {
	UserID      string
	SignalID    string
	Description string
	// ObjectKey nil or "" keeps the current object key.
	ObjectKey *string
}

// ModifyResult is returned by a successful Modify.
type ModifyResult struct {
	Message string
	Signal  *model.Signal
}

// Modify updates the description and, optionally, the object key of a signal.
// The owner and signal ID never change.
func (s *SignalService) Modify(ctx context.Context, in ModifyInput) (*ModifyResult, error) {
	if in.UserID == "" || in.SignalID == "" {
		return nil, apperror.MissingField("user_id", MsgModifyLackIDs)
	}

	var newKey *string
	if in.ObjectKey != nil && *in.ObjectKey != "" {
		newKey = in.ObjectKey
		if !strings.Contains(*newKey, csvMarker) {
			return nil, apperror.InvalidFormat("s3", MsgCreateBadObjectKey)
		}
	}

	id, err := parseSignalID(in.SignalID, MsgModifyInvalid, MsgModifyNotExist)
	if err != nil {
		return nil, err
	}
	if err := s.mustExist(ctx, in.UserID, id, MsgModifyNotExist); err != nil {
		return nil, err
	}

	if newKey != nil {
		if err := s.checkObject(ctx, *newKey, msgCreateObjectMissing); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, in.UserID, id, in.Description, newKey); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(MsgModifyNotExist)
		}
		s.logger.Error("failed to update signal",
			slog.String("userID", in.UserID),
			slog.Int("signalID", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("modifying signal: %w", err)
	}

	signal, err := s.repo.Get(ctx, in.UserID, id)
	if err != nil {
		return nil, fmt.Errorf("modifying signal: %w", err)
	}

	s.logger.Info("signal modified",
		slog.String("userID", in.UserID),
		auth.SubjectAttr(ctx),
		slog.Int("signalID", id),
		slog.Bool("objectKeyChanged", newKey != nil),
	)

	return &ModifyResult{Message: MsgModifyPass, Signal: signal}, nil
}

// ReadInput identifies the signal to read.
type ReadInput struct {
	UserID   string
	SignalID string
}

// ReadResult carries the CSV content of a signal's object.
//
// A file with fewer than MinColumns columns is NOT an error: Message says so,
// but CSV is still returned.
type ReadResult struct {
	Message string
	CSV     string
	Columns int
}

// Read fetches the signal's CSV object and checks it has enough columns.
func (s *SignalService) Read(ctx context.Context, in ReadInput) (*ReadResult, error) {
	if in.UserID == "" || in.SignalID == "" {
		return nil, apperror.MissingField("user_id", MsgReadLackIDs)
	}
	id, err := parseSignalID(in.SignalID, MsgInvalidID, MsgReadNotExist)
	if err != nil {
		return nil, err
	}
	if err := s.mustExist(ctx, in.UserID, id, MsgReadNotExist); err != nil {
		return nil, err
	}

	key, err := s.repo.GetObjectKey(ctx, in.UserID, id)
	if err != nil {
		return nil, fmt.Errorf("reading signal: %w", err)
	}

	data, err := s.objects.Get(ctx, key)
	if err != nil {
		s.logger.Warn("signal object unavailable",
			slog.String("objectKey", key),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Upstream(fmt.Sprintf(msgReadObjectMissing, key, err), err)
	}
	if !utf8.Valid(data) {
		return nil, apperror.Upstream(fmt.Sprintf(msgReadNotUTF8, key), nil)
	}

	text := string(data)
	columns := CountColumns(text)

	message := MsgReadPass
	if columns < MinColumns {
		message = MsgReadFewColumns
	}

	s.logger.Debug("signal read",
		slog.String("userID", in.UserID),
		slog.Int("signalID", id),
		slog.String("objectKey", key),
		slog.Int("columns", columns),
	)

	return &ReadResult{Message: message, CSV: text, Columns: columns}, nil
}

// DeleteInput identifies the signal to delete. Description is accepted for
// request compatibility and otherwise ignored.
type DeleteInput struct {
	UserID      string
	SignalID    string
	Description string
}

// DeleteResult is returned by a successful Delete.
type DeleteResult struct {
	Message string
	// ObjectRemoved is true when the CSV object was also deleted from the bucket.
	ObjectRemoved bool
}

// Delete removes a signal, then removes its CSV object if no other signal
// references it any more.
//
// The two steps are NOT atomic. The record is always deleted first; if the
// object cleanup fails afterwards the failure is logged and the delete still
// reports success. Worst case an orphaned file is left in the bucket.
func (s *SignalService) Delete(ctx context.Context, in DeleteInput) (*DeleteResult, error) {
	if in.UserID == "" || in.SignalID == "" {
		return nil, apperror.MissingField("user_id", MsgDeleteLackIDs)
	}
	id, err := parseSignalID(in.SignalID, MsgInvalidID, MsgDeleteNotExist)
	if err != nil {
		return nil, err
	}
	if err := s.mustExist(ctx, in.UserID, id, MsgDeleteNotExist); err != nil {
		return nil, err
	}

	key, err := s.repo.GetObjectKey(ctx, in.UserID, id)
	if err != nil {
		return nil, fmt.Errorf("deleting signal: %w", err)
	}

	if err := s.repo.Delete(ctx, in.UserID, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(MsgDeleteNotExist)
		}
		return nil, fmt.Errorf("deleting signal: %w", err)
	}

	s.logger.Info("signal deleted",
		slog.String("userID", in.UserID),
		auth.SubjectAttr(ctx),
		slog.Int("signalID", id),
	)

	return &DeleteResult{
		Message:       MsgDeletePass,
		ObjectRemoved: s.removeIfUnreferenced(ctx, key),
	}, nil
}

// removeIfUnreferenced deletes the object when no signal points at it.
// It reports whether the object was deleted. Failures are only logged.
func (s *SignalService) removeIfUnreferenced(ctx context.Context, key string) bool {
	refs, err := s.repo.CountReferences(ctx, key)
	if err != nil {
		// Unsure whether the file is still needed, so keep it.
		s.logger.Warn("could not count object references, keeping object",
			slog.String("objectKey", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	if refs > 0 {
		return false
	}

	if err := s.objects.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to remove orphaned object",
			slog.String("objectKey", key),
			slog.String("error", err.Error()),
		)
		return false
	}

	s.logger.Info("orphaned object removed", slog.String("objectKey", key))
	return true
}

// checkObject verifies key exists in the bucket. msgFormat receives the key
// and the store error.
func (s *SignalService) checkObject(ctx context.Context, key, msgFormat string) error {
	if err := s.objects.Head(ctx, key); err != nil {
		s.logger.Warn("object check failed",
			slog.String("objectKey", key),
			slog.String("error", err.Error()),
		)
		return apperror.Upstream(fmt.Sprintf(msgFormat, key, err), err)
	}
	return nil
}

// mustExist returns a NotFound error carrying msg when the pair is not stored.
func (s *SignalService) mustExist(ctx context.Context, userID string, id int, msg string) error {
	exists, err := s.repo.Exists(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("checking signal: %w", err)
	}
	if !exists {
		return apperror.NotFoundMessage(msg)
	}
	return nil
}

// parseSignalID applies the digits-only rule to a client-supplied ID.
// Callers have already rejected the empty string.
//
// A digit string too large for an int passes the rule but cannot name any
// stored signal, so it gets notExistMsg rather than invalidMsg.
func parseSignalID(raw, invalidMsg, notExistMsg string) (int, error) {
	id, err := signalid.Parse(raw)
	if errors.Is(err, signalid.ErrOutOfRange) {
		return 0, apperror.NotFoundMessage(notExistMsg)
	}
	if err != nil {
		return 0, apperror.InvalidFormat("signal_id", invalidMsg)
	}
	return id, nil
}
