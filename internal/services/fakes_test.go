package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
	"field-dispatch/internal/repositories"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/telegram"
	"field-dispatch/pkg/types"
)

// clock hands out strictly increasing timestamps so ordering is deterministic.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

// --- users

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entities.User
	clock *clock
}

func newFakeUserRepo(c *clock) *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*entities.User), clock: c}
}

func (r *fakeUserRepo) add(name string, role entities.Role) *entities.User {
	u := &entities.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Role:      role,
		CreatedAt: r.clock.Now(),
	}
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
	return u
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperrors.ErrConflict
		}
	}
	user.CreatedAt = r.clock.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]*entities.User)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeUserRepo) ListByRole(ctx context.Context, role entities.Role) ([]entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.User, 0)
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeUserRepo) CountByRole(ctx context.Context, role entities.Role) (int64, error) {
	list, _ := r.ListByRole(ctx, role)
	return int64(len(list)), nil
}

func (r *fakeUserRepo) UpdateContact(ctx context.Context, id uuid.UUID, telegramChatID *int64, whatsAppNumber *string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	u.TelegramChatID = telegramChatID
	u.WhatsAppNumber = whatsAppNumber
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// --- tasks

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*entities.Task
	users *fakeUserRepo
	clock *clock
}

func newFakeTaskRepo(users *fakeUserRepo, c *clock) *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[uuid.UUID]*entities.Task), users: users, clock: c}
}

func (r *fakeTaskRepo) view(t *entities.Task) *entities.Task {
	cp := *t
	cp.ReportImages = append([]string{}, t.ReportImages...)
	r.users.mu.Lock()
	if u, ok := r.users.users[t.AssignedTo]; ok {
		cp.AssignedToName = u.Name
	}
	r.users.mu.Unlock()
	return &cp
}

func (r *fakeTaskRepo) Create(ctx context.Context, tx pgx.Tx, task *entities.Task) error {
	r.users.mu.Lock()
	_, ok := r.users.users[task.AssignedTo]
	r.users.mu.Unlock()
	if !ok {
		return apperrors.NewValidationError("assigned_to", "technician does not exist")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	task.CreatedAt = r.clock.Now()
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) FindByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.view(t), nil
}

func (r *fakeTaskRepo) List(ctx context.Context, filter types.Filter, assignedTo *uuid.UUID) ([]entities.Task, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var statuses []string
	if raw, ok := filter.Filter["status"]; ok {
		statuses = strings.Split(raw.(string), ",")
	}

	out := make([]entities.Task, 0)
	for _, t := range r.tasks {
		if assignedTo != nil && t.AssignedTo != *assignedTo {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, string(t.Status)) {
			continue
		}
		out = append(out, *r.view(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, uint64(len(out)), nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (r *fakeTaskRepo) FindActiveByTechnician(ctx context.Context, tx pgx.Tx, technicianID uuid.UUID) (*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.AssignedTo == technicianID && t.Status == entities.TaskStatusInProgress {
			return r.view(t), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// Transition mirrors the conditional UPDATE and the partial unique index.
func (r *fakeTaskRepo) Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, from entities.TaskStatus, change repositories.TaskTransition) (*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.Status != from {
		return nil, apperrors.ErrInvalidTransition
	}
	if change.To == entities.TaskStatusInProgress {
		for _, other := range r.tasks {
			if other.ID != id && other.AssignedTo == t.AssignedTo && other.Status == entities.TaskStatusInProgress {
				return nil, apperrors.ErrActiveTaskExists
			}
		}
	}

	at := change.At
	t.Status = change.To
	switch change.To {
	case entities.TaskStatusAccepted:
		t.AcceptedAt = &at
	case entities.TaskStatusInProgress:
		t.StartedAt = &at
	case entities.TaskStatusCompleted:
		t.CompletedAt = &at
		t.Report = change.Report
		t.ReportImages = append([]string{}, change.ReportImages...)
		t.Success = change.Success
		t.DurationMinutes = change.DurationMinutes
	}
	return r.view(t), nil
}

func (r *fakeTaskRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

// --- outbox

type fakeOutboxRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*entities.OutboxMessage
	order    []uuid.UUID
	clock    *clock
}

func newFakeOutboxRepo(c *clock) *fakeOutboxRepo {
	return &fakeOutboxRepo{messages: make(map[uuid.UUID]*entities.OutboxMessage), clock: c}
}

func (r *fakeOutboxRepo) Insert(ctx context.Context, tx pgx.Tx, msg *entities.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.CreatedAt = r.clock.Now()
	cp := *msg
	r.messages[msg.ID] = &cp
	r.order = append(r.order, msg.ID)
	return nil
}

func (r *fakeOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	now := r.clock.Now()
	m.ProcessedAt = &now
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	m.LastError = &reason
	return nil
}

func (r *fakeOutboxRepo) ClaimPending(ctx context.Context, staleBefore time.Time, maxAttempts, limit int) ([]entities.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	out := make([]entities.OutboxMessage, 0)
	for _, id := range r.order {
		m := r.messages[id]
		last := m.CreatedAt
		if m.ClaimedAt != nil {
			last = *m.ClaimedAt
		}
		if m.ProcessedAt != nil || m.Attempts >= maxAttempts || !last.Before(staleBefore) {
			continue
		}
		m.Attempts++
		m.ClaimedAt = &now
		out = append(out, *m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeOutboxRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.messages[id].EventType)
	}
	return out
}

// --- notifications

type fakeNotificationRepo struct {
	mu       sync.Mutex
	items    []*entities.Notification
	failures int
	clock    *clock
}

func newFakeNotificationRepo(c *clock) *fakeNotificationRepo {
	return &fakeNotificationRepo{clock: c}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, tx pgx.Tx, n *entities.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("connection reset")
	}
	n.CreatedAt = r.clock.Now()
	n.Read = false
	cp := *n
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakeNotificationRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeNotificationRepo) ListFor(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]entities.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.Notification, 0)
	for i := len(r.items) - 1; i >= 0; i-- {
		n := r.items[i]
		if n.RecipientID != recipientID || (unreadOnly && n.Read) {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.items {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.ID == id {
			if n.ReadAt == nil {
				now := r.clock.Now()
				n.ReadAt = &now
			}
			n.Read = true
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for _, n := range r.items {
		if n.RecipientID == recipientID && !n.Read {
			now := r.clock.Now()
			n.Read = true
			n.ReadAt = &now
			updated++
		}
	}
	return updated, nil
}

func (r *fakeNotificationRepo) forRecipient(id uuid.UUID) []entities.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.Notification, 0)
	for _, n := range r.items {
		if n.RecipientID == id {
			out = append(out, *n)
		}
	}
	return out
}

// --- locations

type fakeLocationRepo struct {
	mu      sync.Mutex
	samples []entities.LocationSample
	tasks   *fakeTaskRepo
	clock   *clock
}

func newFakeLocationRepo(tasks *fakeTaskRepo, c *clock) *fakeLocationRepo {
	return &fakeLocationRepo{tasks: tasks, clock: c}
}

func (r *fakeLocationRepo) InsertIfTracking(ctx context.Context, sample *entities.LocationSample) error {
	task, err := r.tasks.FindByID(ctx, nil, sample.TaskID)
	if err != nil || !task.Tracking() {
		return apperrors.ErrInvalidState
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sample.RecordedAt = r.clock.Now()
	r.samples = append(r.samples, *sample)
	return nil
}

func (r *fakeLocationRepo) ListByTask(ctx context.Context, taskID uuid.UUID, limit int) ([]entities.LocationSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.LocationSample, 0)
	for i := len(r.samples) - 1; i >= 0 && len(out) < limit; i-- {
		if r.samples[i].TaskID == taskID {
			out = append(out, r.samples[i])
		}
	}
	return out, nil
}

func (r *fakeLocationRepo) Track(ctx context.Context, taskID uuid.UUID) ([]entities.LocationSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.LocationSample, 0)
	for _, s := range r.samples {
		if s.TaskID == taskID {
			out = append(out, s)
		}
	}
	return out, nil
}

// LatestForUser skips samples of deleted tasks, as the FK cascade would.
func (r *fakeLocationRepo) LatestForUser(ctx context.Context, userID uuid.UUID) (*entities.LocationSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.samples) - 1; i >= 0; i-- {
		if r.samples[i].UserID != userID {
			continue
		}
		if _, err := r.tasks.FindByID(ctx, nil, r.samples[i].TaskID); err != nil {
			continue
		}
		s := r.samples[i]
		return &s, nil
	}
	return nil, apperrors.ErrNotFound
}

// --- ratings

type fakeRatingRepo struct {
	mu      sync.Mutex
	ratings []entities.Rating
	clock   *clock
}

func newFakeRatingRepo(c *clock) *fakeRatingRepo {
	return &fakeRatingRepo{clock: c}
}

func (r *fakeRatingRepo) Create(ctx context.Context, rating *entities.Rating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.ratings {
		if existing.TaskID == rating.TaskID {
			return apperrors.ErrConflict
		}
	}
	rating.CreatedAt = r.clock.Now()
	r.ratings = append(r.ratings, *rating)
	return nil
}

func (r *fakeRatingRepo) ListByTechnician(ctx context.Context, technicianID uuid.UUID) ([]entities.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.Rating, 0)
	for i := len(r.ratings) - 1; i >= 0; i-- {
		if r.ratings[i].TechnicianID == technicianID {
			out = append(out, r.ratings[i])
		}
	}
	return out, nil
}

func (r *fakeRatingRepo) List(ctx context.Context) ([]entities.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.Rating{}, r.ratings...), nil
}

// --- stats

type fakeStatsRepo struct {
	tasks *fakeTaskRepo
}

func (r *fakeStatsRepo) TaskCounts(ctx context.Context, assignedTo *uuid.UUID) (*dto.StatsDTO, error) {
	tasks, _, _ := r.tasks.List(ctx, types.Filter{}, assignedTo)
	stats := &dto.StatsDTO{}
	for _, t := range tasks {
		stats.Total++
		switch t.Status {
		case entities.TaskStatusPending:
			stats.Pending++
		case entities.TaskStatusAccepted:
			stats.Accepted++
		case entities.TaskStatusInProgress:
			stats.InProgress++
		case entities.TaskStatusCompleted:
			stats.Completed++
			if t.Success != nil && *t.Success {
				stats.Successful++
			} else {
				stats.Unsuccessful++
			}
		}
	}
	return stats, nil
}

// --- cache

type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		c.data[key] = string(v)
	case string:
		c.data[key] = v
	default:
		return errors.New("unsupported cache value")
	}
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *fakeCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(c.data[key], 10, 64)
	n++
	c.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (c *fakeCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// --- outbound channels

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeTelegram struct {
	mu      sync.Mutex
	enabled bool
	errs    []error
	sent    []sentMessage
	calls   int
}

func (t *fakeTelegram) Enabled() bool { return t.enabled }

func (t *fakeTelegram) SendMessage(ctx context.Context, chatID int64, text string) error {
	return t.SendMessageEx(ctx, chatID, text)
}

func (t *fakeTelegram) SendMessageEx(ctx context.Context, chatID int64, text string, options ...telegram.MessageOption) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if len(t.errs) > 0 {
		err := t.errs[0]
		t.errs = t.errs[1:]
		if err != nil {
			return err
		}
	}
	t.sent = append(t.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (t *fakeTelegram) sentTo(chatID int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, m := range t.sent {
		if m.ChatID == chatID {
			n++
		}
	}
	return n
}

type pushed struct {
	UserID uuid.UUID
	Type   string
}

type fakePush struct {
	mu   sync.Mutex
	sent []pushed
}

func (p *fakePush) SendNotification(userID uuid.UUID, payload interface{}, messageType string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, pushed{UserID: userID, Type: messageType})
	return nil
}

func (p *fakePush) count(messageType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.sent {
		if s.Type == messageType {
			n++
		}
	}
	return n
}
