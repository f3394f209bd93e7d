// Package inmem implements the store contracts over in-process maps. It backs
// the service tests and mirrors the semantics the postgres package enforces
// with constraints: composite-key uniqueness on participants, monotonic
// progress merge, sticky completion.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rideLoopAPI/internal/apperrors"
	"rideLoopAPI/internal/types/activity"
	"rideLoopAPI/internal/types/challenge"
	"rideLoopAPI/internal/types/group"
)

type participantKey struct {
	userID      uuid.UUID
	challengeID uuid.UUID
}

type membershipKey struct {
	userID  uuid.UUID
	groupID uuid.UUID
}

type user struct {
	id       uuid.UUID
	clerkID  string
	username string
	role     group.GlobalRole
}

type Store struct {
	mu           sync.RWMutex
	challenges   map[uuid.UUID]*challenge.Challenge
	codes        map[string]uuid.UUID
	participants map[participantKey]*challenge.Participant
	activities   map[uuid.UUID][]activity.Activity
	memberships  map[membershipKey]group.Role
	users        map[uuid.UUID]*user
	byClerkID    map[string]uuid.UUID
}

func New() *Store {
	return &Store{
		challenges:   make(map[uuid.UUID]*challenge.Challenge),
		codes:        make(map[string]uuid.UUID),
		participants: make(map[participantKey]*challenge.Participant),
		activities:   make(map[uuid.UUID][]activity.Activity),
		memberships:  make(map[membershipKey]group.Role),
		users:        make(map[uuid.UUID]*user),
		byClerkID:    make(map[string]uuid.UUID),
	}
}

// --- test fixtures ---

// AddUser registers a user and returns its id.
func (s *Store) AddUser(clerkID, username string, role group.GlobalRole) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users[id] = &user{id: id, clerkID: clerkID, username: username, role: role}
	s.byClerkID[clerkID] = id
	return id
}

func (s *Store) SetRole(userID, groupID uuid.UUID, role group.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[membershipKey{userID, groupID}] = role
}

func (s *Store) AddActivity(a activity.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.activities[a.UserID] = append(s.activities[a.UserID], a)
}

// --- ChallengeStore ---

func (s *Store) CreateChallenge(_ context.Context, ch *challenge.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.codes[ch.Code]; exists {
		return apperrors.Conflict("challenge code %s already exists", ch.Code)
	}
	ch.CreatedAt = time.Now()
	cp := *ch
	s.challenges[ch.ID] = &cp
	s.codes[ch.Code] = ch.ID
	return nil
}

func (s *Store) GetChallenge(_ context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.challenges[id]
	if !ok {
		return nil, apperrors.NotFound("challenge %s not found", id)
	}
	cp := *ch
	return &cp, nil
}

func (s *Store) GetChallengeByCode(_ context.Context, code string) (*challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[code]
	if !ok {
		return nil, apperrors.NotFound("challenge %s not found", code)
	}
	cp := *s.challenges[id]
	return &cp, nil
}

func (s *Store) UpdateChallenge(_ context.Context, ch *challenge.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.challenges[ch.ID]
	if !ok {
		return apperrors.NotFound("challenge %s not found", ch.ID)
	}
	cp := *ch
	cp.Code = existing.Code
	cp.CreatedAt = existing.CreatedAt
	s.challenges[ch.ID] = &cp
	return nil
}

func (s *Store) DeleteChallenge(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[id]
	if !ok {
		return apperrors.NotFound("challenge %s not found", id)
	}
	delete(s.codes, ch.Code)
	delete(s.challenges, id)
	for key := range s.participants {
		if key.challengeID == id {
			delete(s.participants, key)
		}
	}
	return nil
}

func (s *Store) ListActiveChallenges(_ context.Context, now time.Time) ([]*challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*challenge.Challenge
	for _, ch := range s.challenges {
		if ch.Visible && !now.Before(ch.StartDate) && !now.After(ch.EndDate) {
			cp := *ch
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (s *Store) ListGlobalChallenges(_ context.Context) ([]*challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*challenge.Challenge
	for _, ch := range s.challenges {
		if ch.GroupID == nil && ch.Visible {
			cp := *ch
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (s *Store) ListGroupChallenges(_ context.Context, groupID uuid.UUID) ([]*challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*challenge.Challenge
	for _, ch := range s.challenges {
		if ch.GroupID != nil && *ch.GroupID == groupID {
			cp := *ch
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

// --- ParticipantStore ---

func (s *Store) InsertParticipant(_ context.Context, p *challenge.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey{p.UserID, p.ChallengeID}
	if _, exists := s.participants[key]; exists {
		return apperrors.Conflict("user %s already joined challenge %s", p.UserID, p.ChallengeID)
	}
	p.JoinedAt = time.Now()
	cp := *p
	s.participants[key] = &cp
	return nil
}

func (s *Store) GetParticipant(_ context.Context, userID, challengeID uuid.UUID) (*challenge.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[participantKey{userID, challengeID}]
	if !ok {
		return nil, apperrors.NotFound("user %s has not joined challenge %s", userID, challengeID)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpdateProgress(_ context.Context, userID, challengeID uuid.UUID, prog float64, completed bool, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantKey{userID, challengeID}]
	if !ok {
		return false, apperrors.NotFound("user %s has not joined challenge %s", userID, challengeID)
	}
	if prog > p.Progress {
		p.Progress = prog
	}
	if completed && !p.Completed {
		p.Completed = true
		t := at
		p.CompletedAt = &t
		return true, nil
	}
	return false, nil
}

func (s *Store) DeleteParticipant(_ context.Context, userID, challengeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey{userID, challengeID}
	if _, ok := s.participants[key]; !ok {
		return apperrors.NotFound("user %s has not joined challenge %s", userID, challengeID)
	}
	delete(s.participants, key)
	return nil
}

func (s *Store) ListUserChallenges(_ context.Context, userID uuid.UUID) ([]*challenge.UserChallengeResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*challenge.UserChallengeResponse
	for key, p := range s.participants {
		if key.userID != userID {
			continue
		}
		ch, ok := s.challenges[key.challengeID]
		if !ok {
			continue
		}
		cp := *ch
		out = append(out, &challenge.UserChallengeResponse{
			Challenge: &cp,
			Progress:  p.Progress,
			Completed: p.Completed,
			JoinedAt:  p.JoinedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.After(out[j].JoinedAt) })
	return out, nil
}

func (s *Store) ListParticipants(_ context.Context, challengeID uuid.UUID) ([]*challenge.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*challenge.Participant
	for key, p := range s.participants {
		if key.challengeID == challengeID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Progress != out[j].Progress {
			return out[i].Progress > out[j].Progress
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

// --- ActivityStore ---

func (s *Store) InsertActivity(_ context.Context, a *activity.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.CreatedAt = time.Now()
	s.activities[a.UserID] = append(s.activities[a.UserID], *a)
	return nil
}

func (s *Store) ListActivities(_ context.Context, userID uuid.UUID, from, to time.Time) ([]activity.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []activity.Activity
	for _, a := range s.activities[userID] {
		if !a.StartTime.Before(from) && !a.StartTime.After(to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// --- MembershipStore ---

func (s *Store) GetRole(_ context.Context, userID, groupID uuid.UUID) (group.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memberships[membershipKey{userID, groupID}], nil
}

// --- UserStore ---

func (s *Store) GetUserIDByClerkID(_ context.Context, clerkID string) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byClerkID[clerkID]
	if !ok {
		return uuid.Nil, apperrors.NotFound("user not found for clerk_id %s", clerkID)
	}
	return id, nil
}

func (s *Store) GetGlobalRole(_ context.Context, userID uuid.UUID) (group.GlobalRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return "", apperrors.NotFound("user %s not found", userID)
	}
	return u.role, nil
}

func (s *Store) GetUsername(_ context.Context, userID uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return "", apperrors.NotFound("user %s not found", userID)
	}
	return u.username, nil
}
