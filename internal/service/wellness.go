// Package service holds the wellness rules that sit between the HTTP handlers
// and the session store.
//
// Every user action is the same cycle:
//
//	load record → check it exists → apply one model method → save → report
//
// The handler never touches the store directly and the store never knows about
// points or avatars. Services take plain values (a session id, ints, strings)
// and return domain errors from apperror; the handler decides what HTTP status
// or redirect each error becomes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/wellness-tracker/internal/apperror"
	"github.com/sakif/wellness-tracker/internal/catalog"
	"github.com/sakif/wellness-tracker/internal/coerce"
	"github.com/sakif/wellness-tracker/internal/model"
	"github.com/sakif/wellness-tracker/internal/repository"
)

// Registration defaults, applied when a submitted value does not parse.
const (
	DefaultAge        = 18
	DefaultScreenTime = 0.0
	DefaultAvatarID   = 1
)

// notLoggedIn is the message every action returns when the session has no
// record. Clients show it as-is.
const notLoggedIn = "Not logged in"

// Registration is the raw registration form. All four fields must be present
// and non-empty; the numeric ones are parsed leniently afterwards.
type Registration struct {
	Name       string `form:"name" validate:"required"`
	Age        string `form:"age" validate:"required"`
	ScreenTime string `form:"screen_time" validate:"required"`
	AvatarID   string `form:"avatar_id" validate:"required"`
}

// DashboardView is what the dashboard page is rendered from.
type DashboardView struct {
	User          *model.UserRecord
	Avatars       []model.Avatar
	CurrentAvatar model.Avatar
	Tasks         []model.WellnessTask
}

// TaskResult reports a completed wellness task.
type TaskResult struct {
	Points            int
	PointsEarned      int
	TotalWellnessTime int
}

// WellnessService applies user actions to session records.
type WellnessService struct {
	repo     repository.SessionRepository
	catalog  *catalog.Catalog
	validate *validator.Validate
	logger   *slog.Logger
}

// NewWellnessService creates a WellnessService.
func NewWellnessService(repo repository.SessionRepository, cat *catalog.Catalog, logger *slog.Logger) *WellnessService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return &WellnessService{
		repo:     repo,
		catalog:  cat,
		validate: v,
		logger:   logger,
	}
}

// Avatars lists the avatar catalog for pages shown before registration.
func (s *WellnessService) Avatars() []model.Avatar {
	return s.catalog.Avatars()
}

// LoggedIn reports whether the session holds a record.
func (s *WellnessService) LoggedIn(ctx context.Context, sessionID string) (bool, error) {
	_, err := s.load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Register creates a fresh record for the session, replacing any existing one.
//
// A missing field fails with ErrValidation and leaves the store untouched.
// The avatar id is not checked against the catalog: an unknown id simply
// shows the first avatar on the dashboard.
func (s *WellnessService) Register(ctx context.Context, sessionID string, form Registration) (*model.UserRecord, error) {
	if err := s.validate.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			field := fieldErrs[0].Field()
			s.logger.Info("registration rejected",
				slog.String("session", sessionID),
				slog.String("field", field),
			)
			return nil, apperror.ValidationFailed(field, field+" is required")
		}
		return nil, fmt.Errorf("validating registration: %w", err)
	}

	rec := model.NewUserRecord(
		form.Name,
		coerce.IntString(form.Age, DefaultAge),
		coerce.FloatString(form.ScreenTime, DefaultScreenTime),
		coerce.IntString(form.AvatarID, DefaultAvatarID),
	)

	if err := s.repo.Save(ctx, sessionID, rec); err != nil {
		s.logger.Error("failed to save registration",
			slog.String("session", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("registering user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("session", sessionID),
		slog.Int("avatar_id", rec.AvatarID),
	)
	return rec, nil
}

// Dashboard loads the record, recomputes its unlocked avatars from points and
// saves it back. Unlocks granted any other way are dropped here.
func (s *WellnessService) Dashboard(ctx context.Context, sessionID string) (*DashboardView, error) {
	var view *DashboardView
	err := s.update(ctx, sessionID, func(rec *model.UserRecord) error {
		rec.RecomputeUnlocks()
		view = &DashboardView{
			User:          rec,
			Avatars:       s.catalog.Avatars(),
			CurrentAvatar: s.catalog.AvatarOrDefault(rec.AvatarID),
			Tasks:         s.catalog.Tasks(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CompleteTask credits minutes spent on a wellness task. Negative durations
// count as zero.
func (s *WellnessService) CompleteTask(ctx context.Context, sessionID string, taskID, minutes int) (*TaskResult, error) {
	var res TaskResult
	err := s.update(ctx, sessionID, func(rec *model.UserRecord) error {
		res.PointsEarned = rec.CompleteTask(taskID, minutes)
		res.Points = rec.Points
		res.TotalWellnessTime = rec.TotalWellnessTime
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task completed",
		slog.String("session", sessionID),
		slog.Int("task_id", taskID),
		slog.Int("points_earned", res.PointsEarned),
	)
	return &res, nil
}

// CompleteStudy credits a finished study session and returns the new total.
// The session length is logged but not scored.
func (s *WellnessService) CompleteStudy(ctx context.Context, sessionID string, minutes int) (int, error) {
	var points int
	err := s.update(ctx, sessionID, func(rec *model.UserRecord) error {
		rec.CompleteStudy()
		points = rec.Points
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("study session completed",
		slog.String("session", sessionID),
		slog.Int("minutes", minutes),
	)
	return points, nil
}

// StopStudy applies the early-stop penalty and returns the new total.
func (s *WellnessService) StopStudy(ctx context.Context, sessionID string) (int, error) {
	var points int
	err := s.update(ctx, sessionID, func(rec *model.UserRecord) error {
		rec.StopStudy()
		points = rec.Points
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("study session stopped early", slog.String("session", sessionID))
	return points, nil
}

// UpdateMostUsedApp stores the answer and pays the bonus when it names this
// app. Repeating the answer pays again.
func (s *WellnessService) UpdateMostUsedApp(ctx context.Context, sessionID, appName string) (int, error) {
	var points, bonus int
	err := s.update(ctx, sessionID, func(rec *model.UserRecord) error {
		bonus = rec.SetMostUsedApp(appName)
		points = rec.Points
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("most used app updated",
		slog.String("session", sessionID),
		slog.Int("bonus", bonus),
	)
	return points, nil
}

// ChangeAvatar selects an unlocked avatar. A locked one fails with
// ErrForbidden and nothing is saved.
func (s *WellnessService) ChangeAvatar(ctx context.Context, sessionID string, avatarID int) error {
	err := s.update(ctx, sessionID, func(rec *model.UserRecord) error {
		return rec.ChangeAvatar(avatarID)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrForbidden) {
			s.logger.Info("avatar change rejected",
				slog.String("session", sessionID),
				slog.Int("avatar_id", avatarID),
			)
		}
		return err
	}

	s.logger.Info("avatar changed",
		slog.String("session", sessionID),
		slog.Int("avatar_id", avatarID),
	)
	return nil
}

// PurgeExpired drops sessions past their TTL. The server calls it on a timer.
func (s *WellnessService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purging expired sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired sessions purged", slog.Int64("count", n))
	}
	return n, nil
}

// Ping checks the session store.
func (s *WellnessService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// update runs one read-modify-write cycle. A missing record becomes
// ErrUnauthorized; if fn fails the record is not saved.
func (s *WellnessService) update(ctx context.Context, sessionID string, fn func(*model.UserRecord) error) error {
	rec, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(rec); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, sessionID, rec); err != nil {
		s.logger.Error("failed to save session",
			slog.String("session", sessionID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (s *WellnessService) load(ctx context.Context, sessionID string) (*model.UserRecord, error) {
	if sessionID == "" {
		return nil, apperror.Unauthorized(notLoggedIn)
	}
	rec, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(notLoggedIn)
		}
		s.logger.Error("failed to load session",
			slog.String("session", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return rec, nil
}
