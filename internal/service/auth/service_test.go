package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"chinchon-service/internal/config"
	"chinchon-service/internal/model"
	authsvc "chinchon-service/internal/service/auth"
	pkgAuth "chinchon-service/pkg/auth"
	appErr "chinchon-service/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, *authsvc.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.Player{}); err != nil {
		t.Fatalf("failed to migrate player model: %v", err)
	}

	config.GlobalConfig = &config.Config{
		JWT: config.JWTConfig{
			Secret: "test-secret",
			Expire: 1,
		},
	}

	return db, authsvc.NewService(db)
}

func TestRegisterAndLogin(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "lola_92", "Secret@123", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if reg.Token == "" || reg.Player.Nickname != "lola_92" {
		t.Fatalf("unexpected register result: %+v", reg)
	}
	claims, err := pkgAuth.ParsePlayerToken(reg.Token)
	if err != nil {
		t.Fatalf("token does not parse: %v", err)
	}
	if claims.SubjectID != reg.Player.ID {
		t.Fatalf("token for player %d, want %d", claims.SubjectID, reg.Player.ID)
	}

	var stored model.Player
	if err := db.First(&stored, reg.Player.ID).Error; err != nil {
		t.Fatalf("reload player: %v", err)
	}
	if stored.PasswordHash == "Secret@123" {
		t.Fatalf("password stored in clear text")
	}

	login, err := svc.Login(ctx, "lola_92", "Secret@123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if login.Player.ID != reg.Player.ID || login.Player.LastLoginAt == nil {
		t.Fatalf("unexpected login result: %+v", login.Player)
	}
}

func TestRegisterValidation(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "pepe", "Secret@123", "Pepe"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	cases := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"taken", "pepe", "Secret@123", appErr.ErrUsernameTaken},
		{"short name", "pe", "Secret@123", appErr.ErrInvalidUsername},
		{"bad chars", "pe pe", "Secret@123", appErr.ErrInvalidUsername},
		{"weak password", "pepa", "123", appErr.ErrWeakPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.username, tc.password, ""); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoginFailures(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "juan", "Secret@123", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Login(ctx, "juan", "wrong-pass"); !errors.Is(err, appErr.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "Secret@123"); !errors.Is(err, appErr.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	if err := db.Model(&model.Player{}).Where("id = ?", reg.Player.ID).Update("status", "disabled").Error; err != nil {
		t.Fatalf("failed to disable player: %v", err)
	}
	if _, err := svc.Login(ctx, "juan", "Secret@123"); !errors.Is(err, appErr.ErrPlayerDisabled) {
		t.Fatalf("expected ErrPlayerDisabled, got %v", err)
	}
}
