// Package notify delivers reconciliation reports to Slack.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/report"
)

// Notifier publishes a finished report.
type Notifier interface {
	Deliver(ctx context.Context, r report.Report, csvPath string) error
}

type slackAPI interface {
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier uploads the CSV report and posts the text table to the
// configured channel.
type SlackNotifier struct {
	api      slackAPI
	channel  string
	username string
	mention  string
	logger   *zap.Logger
}

func NewSlackNotifier(cfg config.SlackConfig, httpClient *http.Client, logger *zap.Logger) *SlackNotifier {
	opts := []slack.Option{}
	if httpClient != nil {
		opts = append(opts, slack.OptionHTTPClient(httpClient))
	}
	return newSlackNotifier(slack.New(cfg.Token, opts...), cfg, logger)
}

func newSlackNotifier(api slackAPI, cfg config.SlackConfig, logger *zap.Logger) *SlackNotifier {
	return &SlackNotifier{
		api:      api,
		channel:  cfg.Channel,
		username: cfg.User,
		mention:  cfg.Mention,
		logger:   logger.Named("slack"),
	}
}

// Deliver uploads the CSV file, then posts the table. A failed upload is
// logged and the table is still posted; only a failed post is returned.
func (n *SlackNotifier) Deliver(ctx context.Context, r report.Report, csvPath string) error {
	if csvPath != "" {
		if err := n.upload(ctx, r, csvPath); err != nil {
			n.logger.Error("error uploading report file", zap.String("path", csvPath), zap.Error(err))
		}
	}

	text := fmt.Sprintf("Triggered the %s automation. Here is the report: \n```\n%s\n```", r.Title, r.Table())
	if _, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionUsername(n.username),
	); err != nil {
		return fmt.Errorf("post slack report: %w", err)
	}
	n.logger.Info("sync notification sent", zap.String("channel", n.channel))
	return nil
}

func (n *SlackNotifier) upload(ctx context.Context, r report.Report, csvPath string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	summary, err := n.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Reader:         f,
		FileSize:       int(info.Size()),
		Filename:       filepath.Base(csvPath),
		Title:          r.Title + " Report",
		InitialComment: n.initialComment(r),
		Channel:        n.channel,
	})
	if err != nil {
		return err
	}
	n.logger.Info("file uploaded successfully", zap.String("file_id", summary.ID), zap.String("title", summary.Title))
	return nil
}

func (n *SlackNotifier) initialComment(r report.Report) string {
	comment := fmt.Sprintf("Triggered the %s automation. Here is the CSV report you requested", r.Title)
	if m := strings.TrimSpace(n.mention); m != "" {
		comment = m + " " + comment
	}
	return comment
}
