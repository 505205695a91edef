package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
	"field-dispatch/pkg/config"
	"field-dispatch/pkg/eventbus"
	"field-dispatch/pkg/utils"
)

type testEnv struct {
	clock     *clock
	users     *fakeUserRepo
	tasks     *fakeTaskRepo
	outbox    *fakeOutboxRepo
	notifRepo *fakeNotificationRepo
	locations *fakeLocationRepo
	ratings   *fakeRatingRepo
	cache     *fakeCache
	telegram  *fakeTelegram
	push      *fakePush
	bus       *eventbus.Bus

	taskSvc     *TaskService
	locationSvc LocationServiceInterface
	notifSvc    NotificationServiceInterface
	ratingSvc   RatingServiceInterface
	statsSvc    StatsServiceInterface
	dispatchSvc DispatchServiceInterface

	admin *entities.User
	tech  *entities.User
}

var testDispatchConfig = config.DispatchConfig{
	RelayInterval:    time.Second,
	RelayGrace:       time.Minute,
	MaxAttempts:      3,
	RetryMaxElapsed:  time.Second,
	BroadcastWorkers: 4,
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	env := &testEnv{clock: newClock(), telegram: &fakeTelegram{enabled: true}, push: &fakePush{}, cache: newFakeCache()}
	env.users = newFakeUserRepo(env.clock)
	env.tasks = newFakeTaskRepo(env.users, env.clock)
	env.outbox = newFakeOutboxRepo(env.clock)
	env.notifRepo = newFakeNotificationRepo(env.clock)
	env.locations = newFakeLocationRepo(env.tasks, env.clock)
	env.ratings = newFakeRatingRepo(env.clock)
	env.bus = eventbus.New(logger)

	env.notifSvc = NewNotificationService(env.notifRepo, env.users, env.cache, env.push, logger)
	env.dispatchSvc = NewDispatchService(env.telegram, env.users, env.tasks, env.notifSvc, testDispatchConfig, logger)
	env.taskSvc = NewTaskService(fakeTxManager{}, env.tasks, env.users, env.outbox, env.dispatchSvc, env.cache, env.bus, logger).(*TaskService)
	env.taskSvc.now = env.clock.Now
	env.locationSvc = NewLocationService(env.locations, env.tasks, env.cache, logger)
	env.ratingSvc = NewRatingService(env.ratings, env.tasks, env.users, logger)
	env.statsSvc = NewStatsService(&fakeStatsRepo{tasks: env.tasks}, env.users, logger)

	env.admin = env.users.add("Dana Admin", entities.RoleAdmin)
	env.tech = env.users.add("Sam Tech", entities.RoleTechnician)
	return env
}

func (e *testEnv) adminActor() utils.Actor {
	return utils.Actor{UserID: e.admin.ID, Role: entities.RoleAdmin}
}

func techActor(u *entities.User) utils.Actor {
	return utils.Actor{UserID: u.ID, Role: entities.RoleTechnician}
}

func taskPayload(assignedTo uuid.UUID) dto.CreateTaskDTO {
	return dto.CreateTaskDTO{
		CustomerName:     "Jane Roe",
		CustomerPhone:    "+1 555 010 2030",
		CustomerAddress:  "12 Elm St",
		IssueDescription: "Boiler makes noise",
		AssignedTo:       assignedTo.String(),
	}
}

func (e *testEnv) createTask(t *testing.T, tech *entities.User) uuid.UUID {
	t.Helper()
	res, err := e.taskSvc.CreateTask(context.Background(), e.adminActor(), taskPayload(tech.ID))
	require.NoError(t, err)
	return res.Task.ID
}

// startedTask creates a task for tech and moves it to in_progress.
func (e *testEnv) startedTask(t *testing.T, tech *entities.User) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := e.createTask(t, tech)
	_, err := e.taskSvc.AcceptTask(ctx, techActor(tech), id)
	require.NoError(t, err)
	_, err = e.taskSvc.StartTask(ctx, techActor(tech), id)
	require.NoError(t, err)
	return id
}

func (e *testEnv) completedTask(t *testing.T, tech *entities.User, success bool) uuid.UUID {
	t.Helper()
	id := e.startedTask(t, tech)
	_, err := e.taskSvc.CompleteTask(context.Background(), techActor(tech), id, dto.CompleteTaskDTO{Report: "done", Success: &success})
	require.NoError(t, err)
	return id
}

func ptr[T any](v T) *T { return &v }
