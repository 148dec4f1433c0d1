package resend

import (
	"context"
	"fmt"
	"html"
	"log"

	resend "github.com/resend/resend-go/v2"

	timehelper "github.com/nvbf/quiniela/pkg/timeHelper"
)

// Service sends operator alerts through Resend.
type Service struct {
	rebaseClient *resend.Client
	from         string
	to           []string
	clock        timehelper.Clock
}

// NewService returns a service that silently does nothing when apiKey or
// recipients are missing.
func NewService(apiKey, from string, to []string, clock timehelper.Clock) *Service {
	s := &Service{
		from:  from,
		to:    to,
		clock: clock,
	}
	if apiKey != "" {
		s.rebaseClient = resend.NewClient(apiKey)
	}
	return s
}

func (s *Service) Enabled() bool {
	return s != nil && s.rebaseClient != nil && len(s.to) > 0
}

// ReminderFailed tells operators a reminder ended in the error state and
// needs manual intervention.
func (s *Service) ReminderFailed(ctx context.Context, alert ReminderAlert) error {
	if !s.Enabled() {
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      s.to,
		Subject: fmt.Sprintf("Recordatorio %s falló (%s)", alert.ReminderID, timehelper.GetTodaysDateString(s.clock)),
		Html:    getEmailTemplate(alert),
	}

	_, err := s.rebaseClient.Emails.SendWithContext(ctx, params)
	if err != nil {
		log.Printf("Failed to send alert mail: %v", err)
		return err
	}
	return nil
}

func getEmailTemplate(alert ReminderAlert) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <style>
        body {
            font-family: Arial, sans-serif;
            background-color: #f4f4f4;
            margin: 0;
            padding: 20px;
        }
        .container {
            background-color: #ffffff;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
            box-shadow: 0 0 10px rgba(0,0,0,0.1);
        }
        code {
            background-color: #f4f4f4;
            padding: 2px 4px;
        }
    </style>
</head>
<body>
    <div class="container">
        <h2>Recordatorio con error</h2>
        <p>El recordatorio <code>%s</code> (&laquo;%s&raquo;) quedó en estado <b>error</b> y no se reintentará.</p>
        <p>Motivo: %s</p>
        <p>Revísalo en la colección <code>reminders</code> y vuelve a programarlo si hace falta.</p>
    </div>
</body>
</html>`, html.EscapeString(alert.ReminderID), html.EscapeString(alert.Title), html.EscapeString(alert.Reason))
}
