package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	send   sendFunc
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, send: smtp.SendMail, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, userEmail, runID, videoKey, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	err := n.send(addr, nil, n.from, []string{userEmail}, buildFailureMessage(n.from, userEmail, runID, videoKey, errorMsg))
	if err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", userEmail),
			zap.String("run_id", runID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", userEmail),
		zap.String("run_id", runID),
	)
	return nil
}

func buildFailureMessage(from, to, runID, videoKey, errorMsg string) []byte {
	subject := fmt.Sprintf("FIAP X - Lesson Materials Failed [Run %s]", runID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"We could not generate lesson materials from your video.\r\n\r\n"+
			"Run ID: %s\r\n"+
			"Video: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"Runs are not retried automatically. Please upload the video again or contact support.\r\n\r\n"+
			"-- FIAP X Lesson Service",
		runID, videoKey, oneLine(errorMsg),
	)

	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		from, to, subject, body,
	))
}

// oneLine flattens decoder diagnostics so they cannot break the message layout.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
