package jobqueue

import (
	"context"
	"fmt"

	"github.com/bonlog/bonlog/internal/pkg/env"
	"github.com/bonlog/bonlog/internal/pkg/mail"
)

// ActivationMailProcessor sends the account activation mail.
type ActivationMailProcessor struct {
}

func NewActivationMailProcessor() *ActivationMailProcessor {
	return &ActivationMailProcessor{}
}

func (p *ActivationMailProcessor) Handle(ctx context.Context, job *Job) error {
	email, _ := job.Payload["email"].(string)
	token, _ := job.Payload["token"].(string)
	if email == "" || token == "" {
		return fmt.Errorf("activation mail job %s missing email or token", job.ID)
	}

	link := env.AppBaseURL() + "/activate?token=" + token
	subject := "【BON-LOG】アカウント有効化のご案内"
	body := fmt.Sprintf("BON-LOGへようこそ！\n\n以下のリンクをクリックしてアカウントを有効化してください。\n\n%s\n\n心当たりのない場合はこのメールを破棄してください。", link)

	return mail.SendMail(email, subject, body)
}
