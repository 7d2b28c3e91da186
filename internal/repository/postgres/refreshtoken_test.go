package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fawasanayat/authgate/internal/apperrors"
	"github.com/fawasanayat/authgate/internal/models"
	"github.com/fawasanayat/authgate/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Tokens reference users, so every subtest creates its owner first
	createUser := func(t *testing.T, tx pgx.Tx, username string) models.User {
		t.Helper()
		userRepo := UserRepo{DB: tx}
		user, err := userRepo.CreateUser(t.Context(), username, username+"@example.com", "hash")
		require.NoError(t, err)
		return user
	}

	newToken := func(userID uuid.UUID) models.RefreshToken {
		return models.RefreshToken{
			ID:        uuid.New(),
			UserID:    userID,
			TokenHash: "hash-of-" + uuid.NewString(),
			CreatedAt: mustParseTime("2024-01-01 19:00:01Z"),
			ExpiresAt: mustParseTime("2200-01-01 03:00:02Z"),
			UsedAt:    nil,
		}
	}

	t.Run("save token ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "tokenowner")
			token := newToken(user.ID)

			err := repo.Save(t.Context(), token)

			require.NoError(t, err)

			got, err := repo.Get(t.Context(), token.ID)
			require.NoError(t, err)
			require.Equal(t, token.ID, got.ID)
			require.Equal(t, token.UserID, got.UserID)
			require.Equal(t, token.TokenHash, got.TokenHash)
			require.WithinDuration(t, token.CreatedAt, got.CreatedAt, time.Microsecond)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, time.Microsecond)
			require.Nil(t, got.UsedAt, "UsedAt should be nil cause original token has UsedAt as nil")
		})
	})

	t.Run("save token for unknown user fails", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			err := repo.Save(t.Context(), newToken(uuid.New()))

			require.Error(t, err, "foreign key to users must be enforced")
		})
	})

	t.Run("get token not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			_, err := repo.Get(t.Context(), uuid.New())

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("mark used ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "markowner")
			token := newToken(user.ID)
			require.NoError(t, repo.Save(t.Context(), token))

			usedAt, err := repo.MarkUsed(t.Context(), token.ID)

			require.NoError(t, err)
			assert.WithinDuration(t, time.Now(), usedAt, time.Second)

			got, err := repo.Get(t.Context(), token.ID)
			require.NoError(t, err)
			require.NotNil(t, got.UsedAt)
			assert.Equal(t, usedAt.UTC(), got.UsedAt.UTC())
		})
	})

	t.Run("mark used twice keeps first time", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "twiceowner")
			token := newToken(user.ID)
			require.NoError(t, repo.Save(t.Context(), token))

			firstUsedAt, err := repo.MarkUsed(t.Context(), token.ID)
			require.NoError(t, err)

			secondUsedAt, err := repo.MarkUsed(t.Context(), token.ID)

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenIsUsed)
			assert.Equal(t, firstUsedAt.UTC(), secondUsedAt.UTC(), "original used_at must not be overwritten")
		})
	})

	t.Run("mark used not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			_, err := repo.MarkUsed(t.Context(), uuid.New())

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("delete expired", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "sweepowner")

			expired := newToken(user.ID)
			expired.ExpiresAt = mustParseTime("2024-02-01 00:00:00Z")
			alive := newToken(user.ID)

			require.NoError(t, repo.Save(t.Context(), expired))
			require.NoError(t, repo.Save(t.Context(), alive))

			deleted, err := repo.DeleteExpired(t.Context(), time.Now())

			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)

			_, err = repo.Get(t.Context(), expired.ID)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound, "expired token should be gone")

			_, err = repo.Get(t.Context(), alive.ID)
			require.NoError(t, err, "alive token should stay")
		})
	})

	t.Run("deleting user cascades to tokens", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "cascadeowner")
			token := newToken(user.ID)
			require.NoError(t, repo.Save(t.Context(), token))

			_, err := tx.Exec(t.Context(), "DELETE FROM users WHERE id = $1", user.ID)
			require.NoError(t, err)

			_, err = repo.Get(t.Context(), token.ID)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})
}
