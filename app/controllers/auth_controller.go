package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bonlog/bonlog/app/models"
	"github.com/bonlog/bonlog/app/repository"
	"github.com/bonlog/bonlog/internal/pkg/database"
	"github.com/bonlog/bonlog/internal/pkg/env"
	"github.com/bonlog/bonlog/internal/pkg/hcaptcha"
	"github.com/bonlog/bonlog/internal/pkg/jobqueue"
	"github.com/bonlog/bonlog/internal/pkg/session"
	"github.com/bonlog/bonlog/internal/pkg/statistics"
)

// HandleAuthLogin authenticates a user against the local account table.
func HandleAuthLogin(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Render("auth/login", fiber.Map{
			"Title":     "ログイン",
			"CSRFToken": c.Locals("csrf"),
		})
	}

	// notice: in production you should not inform the user
	// with detailed messages about login failures
	repo := repository.GetGlobalFactory().User
	user, err := repo.GetByEmail(c.FormValue("email"))
	if err != nil {
		return flashError(c, "ログインに失敗しました", "/login")
	}

	if !user.CheckPassword(c.FormValue("password")) {
		return flashError(c, "ログインに失敗しました", "/login")
	}

	if !user.IsActive() {
		return flashError(c, "アカウントが有効化されていません。メールをご確認ください", "/login")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return flashError(c, fmt.Sprintf("something went wrong: %s", err), "/login")
	}

	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)

	if err := sess.Save(); err != nil {
		return flashError(c, fmt.Sprintf("something went wrong: %s", err), "/login")
	}

	database.GetDB().Model(user).Update("last_login_at", time.Now())

	return flashSuccess(c, "おかえりなさい！", "/")
}

// HandleAuthRegister creates a new account and queues the activation mail.
func HandleAuthRegister(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Render("auth/register", fiber.Map{
			"Title":           "新規登録",
			"CSRFToken":       c.Locals("csrf"),
			"HCaptchaSitekey": env.GetEnv("HCAPTCHA_SITEKEY", ""),
		})
	}

	// Captcha is only enforced when configured; local dev runs without it.
	if env.GetEnv("HCAPTCHA_SECRET", "") != "" {
		valid, err := hcaptcha.Verify(c.FormValue("h-captcha-response"))
		if err != nil || !valid {
			errorMsg := "Captcha validation failed. Please try again."
			if err != nil && env.IsDev() {
				errorMsg = fmt.Sprintf("Captcha validation failed: %v", err)
			}
			return flashError(c, errorMsg, "/register")
		}
	}

	user, err := models.CreateUser(c.FormValue("username"), c.FormValue("email"), c.FormValue("password"))
	if err != nil {
		return flashError(c, fmt.Sprintf("something went wrong: %s", err), "/register")
	}

	if err := user.GenerateActivationToken(); err != nil {
		return flashError(c, fmt.Sprintf("something went wrong: %s", err), "/register")
	}

	if err := repository.GetGlobalFactory().User.Create(user); err != nil {
		return flashError(c, "このメールアドレスまたはユーザー名は既に使われています", "/register")
	}

	if q := jobqueue.GetQueue(); q != nil {
		_, _ = q.Enqueue(jobqueue.JobTypeActivationMail, map[string]interface{}{
			"user_id": user.ID,
			"email":   user.Email,
			"token":   user.ActivationToken,
		})
	}

	// Update statistics after registration
	go statistics.UpdateStatisticsCache()

	return flashSuccess(c, "登録ありがとうございます！確認メールをお送りしました", "/login")
}

// HandleAuthActivate flips an account to active via the mailed token.
func HandleAuthActivate(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return flashError(c, "有効化トークンがありません", "/login")
	}

	repo := repository.GetGlobalFactory().User
	user, err := repo.GetByActivationToken(token)
	if err != nil {
		return flashError(c, "無効な有効化トークンです", "/login")
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	if err := repo.Update(user); err != nil {
		return flashError(c, fmt.Sprintf("something went wrong: %s", err), "/login")
	}

	return flashSuccess(c, "アカウントが有効化されました。ログインしてください", "/login")
}

func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return flashError(c, "logged out (no sess)", "/login")
	}

	if err := sess.Destroy(); err != nil {
		return flashError(c, fmt.Sprintf("something went wrong: %s", err), "/login")
	}

	return flashSuccess(c, "またお会いしましょう！", "/login")
}
