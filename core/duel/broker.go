package duel

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/mentora/core/guard"
)

// CreateRequest challenges an opponent. Both students must be allowed to duel.
func (svc *Service) CreateRequest(ctx context.Context, nr NewRequest) (Request, error) {
	if nr.ChallengerID == nr.OpponentID {
		return Request{}, ErrSelfChallenge
	}
	if svc.conf.MaxQuestionCount > 0 && nr.QuestionCount > svc.conf.MaxQuestionCount {
		return Request{}, ErrQuestionCountTooBig
	}
	for _, id := range []string{nr.ChallengerID, nr.OpponentID} {
		if _, err := svc.students.Require(ctx, id, guard.FeatureDuel); err != nil {
			return Request{}, err
		}
	}

	now := svc.clock()
	req, err := svc.repo.CreateRequest(ctx, Request{
		ID:            svc.newID(),
		ChallengerID:  nr.ChallengerID,
		OpponentID:    nr.OpponentID,
		Subject:       nr.Subject,
		QuestionCount: nr.QuestionCount,
		CreatedAt:     now,
		ExpiresAt:     now.Add(svc.conf.RequestTTL),
	})
	if err != nil {
		return Request{}, errors.Wrap(err, "creating duel request")
	}

	svc.notify(ctx, Event{
		Type:       EventChallenged,
		RequestID:  req.ID,
		StudentIDs: []string{req.ChallengerID, req.OpponentID},
		OccurredAt: now,
	})
	return req, nil
}

// RespondToRequest accepts or rejects a request. Accepting starts an active duel; rejecting returns
// a zero Duel. Late responses fail with ErrRequestExpired whatever the client countdown showed.
// The request is only consumed once the duel is stored, so a failed accept can be retried.
func (svc *Service) RespondToRequest(ctx context.Context, requestID, studentID string, accept bool) (Duel, error) {
	req, err := svc.repo.GetRequest(ctx, requestID)
	if err != nil {
		return Duel{}, err
	}
	if req.OpponentID != studentID {
		return Duel{}, ErrNotOpponent
	}

	now := svc.clock()
	if req.StatusAt(now) == StatusExpired {
		if _, err := svc.repo.ClaimRequest(ctx, requestID); err != nil && errors.Cause(err) != ErrRequestNotFound {
			return Duel{}, errors.Wrap(err, "dropping expired request")
		}
		return Duel{}, ErrRequestExpired
	}

	if !accept {
		if _, err := svc.repo.ClaimRequest(ctx, requestID); err != nil {
			return Duel{}, err
		}
		svc.notify(ctx, Event{
			Type:       EventRejected,
			RequestID:  req.ID,
			StudentIDs: []string{req.ChallengerID, req.OpponentID},
			OccurredAt: now,
		})
		return Duel{}, nil
	}

	qs, err := svc.questions.PickQuestions(ctx, req.Subject, req.QuestionCount)
	if err != nil {
		return Duel{}, errors.Wrap(err, "picking questions")
	}
	if len(qs) < req.QuestionCount {
		return Duel{}, ErrNotEnoughQuestions
	}

	d, err := svc.repo.StartDuel(ctx, req.ID, Duel{
		ID:           svc.newID(),
		ChallengerID: req.ChallengerID,
		OpponentID:   req.OpponentID,
		Subject:      req.Subject,
		Status:       StatusActive,
		Questions:    qs[:req.QuestionCount],
		StartedAt:    now,
	})
	if err != nil {
		if errors.Cause(err) == ErrRequestNotFound {
			return Duel{}, err
		}
		return Duel{}, errors.Wrap(err, "starting duel")
	}

	svc.notify(ctx, Event{
		Type:       EventAccepted,
		RequestID:  req.ID,
		DuelID:     d.ID,
		StudentIDs: []string{d.ChallengerID, d.OpponentID},
		OccurredAt: now,
	})
	return d.Public(), nil
}

// PendingRequests lists the unexpired requests sent or received by the student.
func (svc *Service) PendingRequests(ctx context.Context, studentID string) ([]Request, error) {
	return svc.repo.PendingRequests(ctx, studentID, svc.clock())
}

// SweepExpiredRequests deletes requests past their expiry.
func (svc *Service) SweepExpiredRequests(ctx context.Context) (int64, error) {
	n, err := svc.repo.DeleteExpiredRequests(ctx, svc.clock())
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired requests")
	}
	return n, nil
}
