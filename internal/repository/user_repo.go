package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/locojk/GNG-5300-Group-Backend/internal/database"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lookups by id never return credentials.
var userSecretFields = bson.M{
	"password":           0,
	"reset_token":        0,
	"reset_token_expiry": 0,
}

type UserRepository struct {
	store *database.Store
	log   *observability.RepoLogger
	now   func() time.Time
}

func NewUserRepository(store *database.Store, logger *slog.Logger) *UserRepository {
	return &UserRepository{
		store: store,
		log:   observability.NewRepoLogger(logger, database.UsersCollection),
		now:   time.Now,
	}
}

// Create inserts user, filling in the default role and status. A taken email
// or username is reported as ErrEmailTaken or ErrUsernameTaken.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := r.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}

	id, err := r.store.InsertOne(ctx, database.UsersCollection, user)
	if err != nil {
		return r.writeError(ctx, err, "create")
	}
	user.ID = id
	r.log.LogCreate(ctx, map[string]any{"user_id": id.Hex()})
	return nil
}

// GetByEmail returns the full user document, password hash included.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, nil)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username}, nil)
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, userSecretFields)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, projection bson.M) (*models.User, error) {
	var user models.User
	found, err := r.store.FindOne(ctx, database.UsersCollection, filter, &user, database.QueryOptions{Projection: projection})
	if err != nil {
		r.log.LogError(ctx, err, "read")
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	r.log.LogRead(ctx, map[string]any{"user_id": user.ID.Hex()})
	return &user, nil
}

// UpdateLastLogin records a successful login and clears the failed-attempt counter.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error {
	now := r.now().UTC()
	return r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"last_login": now, "failed_login_attempts": 0},
		"$unset": bson.M{"last_failed_login": ""},
	})
}

func (r *UserRepository) RecordFailedLogin(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$inc": bson.M{"failed_login_attempts": 1},
		"$set": bson.M{"last_failed_login": r.now().UTC()},
	})
}

// SetPasswordResetToken stores the hash of a reset token and its expiry.
func (r *UserRepository) SetPasswordResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expiry time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"reset_token":        tokenHash,
		"reset_token_expiry": expiry.UTC(),
		"updated_at":         r.now().UTC(),
	})
}

// ConsumePasswordResetToken replaces the password of the user holding an
// unexpired token and clears the token in the same write, so a token can be
// used once. An unknown or expired token yields ErrNotFound.
func (r *UserRepository) ConsumePasswordResetToken(ctx context.Context, tokenHash, passwordHash string) (primitive.ObjectID, error) {
	now := r.now().UTC()
	filter := bson.M{
		"reset_token":        tokenHash,
		"reset_token_expiry": bson.M{"$gt": now},
	}

	var holder struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	found, err := r.store.FindOne(ctx, database.UsersCollection, filter, &holder, database.QueryOptions{Projection: bson.M{"_id": 1}})
	if err != nil {
		r.log.LogError(ctx, err, "read")
		return primitive.NilObjectID, err
	}
	if !found {
		return primitive.NilObjectID, ErrNotFound
	}

	filter["_id"] = holder.ID
	res, err := r.store.UpdateOne(ctx, database.UsersCollection, filter, bson.M{
		"$set":   bson.M{"password": passwordHash, "updated_at": now, "failed_login_attempts": 0},
		"$unset": bson.M{"reset_token": "", "reset_token_expiry": ""},
	}, database.UpdateOptions{})
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return primitive.NilObjectID, err
	}
	if res.MatchedCount == 0 {
		return primitive.NilObjectID, ErrNotFound
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": holder.ID.Hex(), "fields": "password"})
	return holder.ID, nil
}

func (r *UserRepository) VerifyEmail(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{"email_verified": true, "updated_at": r.now().UTC()})
}

// UpdateStatus moves the user to one of the enumerated account states.
func (r *UserRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	if !models.IsValidUserStatus(status) {
		return ErrInvalidStatus
	}
	return r.updateByID(ctx, id, bson.M{"status": status, "updated_at": r.now().UTC()})
}

func (r *UserRepository) UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if !models.IsValidRole(role) {
		return ErrInvalidRole
	}
	return r.updateByID(ctx, id, bson.M{"role": role, "updated_at": r.now().UTC()})
}

// UpdateProfile merges fields into the user document and stamps updated_at.
func (r *UserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, fields map[string]any) error {
	if len(fields) == 0 {
		return ErrEmptyUpdate
	}
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	set["updated_at"] = r.now().UTC()
	return r.updateByID(ctx, id, bson.M{"$set": set})
}

func (r *UserRepository) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.store.UpdateOne(ctx, database.UsersCollection, bson.M{"_id": id}, update, database.UpdateOptions{})
	if err != nil {
		return r.writeError(ctx, err, "update")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": id.Hex()})
	return nil
}

func (r *UserRepository) writeError(ctx context.Context, err error, operation string) error {
	var dup *database.DuplicateKeyError
	if errors.As(err, &dup) {
		if strings.Contains(dup.Index, "username") {
			return ErrUsernameTaken
		}
		return ErrEmailTaken
	}
	r.log.LogError(ctx, err, operation)
	return err
}
