package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lambethcyclists/mailroom/internal/agenda"
	"github.com/lambethcyclists/mailroom/internal/ai"
	"github.com/lambethcyclists/mailroom/internal/config"
	"github.com/lambethcyclists/mailroom/internal/dedup"
	"github.com/lambethcyclists/mailroom/internal/drive"
	"github.com/lambethcyclists/mailroom/internal/geocode"
	"github.com/lambethcyclists/mailroom/internal/gmail"
	"github.com/lambethcyclists/mailroom/internal/google"
	"github.com/lambethcyclists/mailroom/internal/instrumentation"
	"github.com/lambethcyclists/mailroom/internal/linker"
	"github.com/lambethcyclists/mailroom/internal/notify"
	"github.com/lambethcyclists/mailroom/internal/notion"
	"github.com/lambethcyclists/mailroom/internal/pipeline"
	"github.com/lambethcyclists/mailroom/internal/store"
)

// service bundles the two wired cycle entry points.
type service struct {
	store     store.Store
	pipeline  *pipeline.Pipeline
	scheduler *agenda.Scheduler
}

// runMeetings adapts the scheduler to the error-returning loop shape.
// Scheduler failures are per-meeting and already logged.
func (s *service) runMeetings(ctx context.Context) error {
	s.scheduler.Run(ctx)
	return nil
}

// buildService wires every client and processor from configuration.
// Extra pipeline options let the run command attach the health checker
// without the one-shot commands needing one.
func buildService(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics, pipeOpts ...pipeline.Option) (*service, error) {
	creds := google.Credentials{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		RefreshToken: cfg.Gmail.RefreshToken,
	}
	hc, err := creds.HTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google oauth: %w", err)
	}
	gmailHC := &http.Client{
		Transport: instrumentation.NewTransport(instrumentation.ServiceGmail, metrics, hc.Transport),
	}
	driveHC := &http.Client{
		Transport: instrumentation.NewTransport(instrumentation.ServiceDrive, metrics, hc.Transport),
	}

	mailbox, err := gmail.NewClient(ctx, gmailHC, cfg.Gmail.Label, cfg.Gmail.ProcessedLabel, cfg.Gmail.MaxPerPoll)
	if err != nil {
		return nil, fmt.Errorf("gmail client: %w", err)
	}
	uploader, err := drive.NewClient(ctx, driveHC, cfg.Drive.FolderID)
	if err != nil {
		return nil, fmt.Errorf("drive client: %w", err)
	}

	st := notion.NewClient(cfg.Notion.APIKey,
		cfg.Notion.ItemsDBID, cfg.Notion.ProjectsDBID, cfg.Notion.MeetingsDBID,
		notion.WithHTTPClient(&http.Client{
			Timeout:   30 * time.Second,
			Transport: instrumentation.NewTransport(instrumentation.ServiceNotion, metrics, nil),
		}))
	analyzer := ai.NewClient(cfg.Claude.APIKey, cfg.Claude.Model,
		ai.WithHTTPClient(&http.Client{
			Timeout:   60 * time.Second,
			Transport: instrumentation.NewTransport(instrumentation.ServiceClaude, metrics, nil),
		}))
	geocoder := geocode.NewClient(cfg.Geocode.APIKey,
		cfg.Geocode.Region, cfg.Geocode.Bounds, cfg.Geocode.Area,
		geocode.WithHTTPClient(&http.Client{
			Timeout:   10 * time.Second,
			Transport: instrumentation.NewTransport(instrumentation.ServiceGeocode, metrics, nil),
		}))
	notifier := notify.NewNotifier(cfg.SMTP.Host, cfg.SMTP.Port,
		cfg.SMTP.Username, cfg.SMTP.Password, cfg.Recipients())

	deduper := dedup.New(st, cfg.Matching.SubjectSimilarity, cfg.Matching.ContentSimilarity)
	relater := linker.New(st, cfg.Matching.LinkSimilarity,
		cfg.Matching.LinkWindowDays, cfg.Matching.PromotionThreshold)

	opts := append([]pipeline.Option{
		pipeline.WithMetrics(metrics),
		pipeline.WithStaleWindow(cfg.Poll.StaleActivityWarn),
	}, pipeOpts...)
	pipe := pipeline.New(pipeline.Deps{
		Mailbox:  mailbox,
		Store:    st,
		Dedup:    deduper,
		Analyzer: analyzer,
		Geocoder: geocoder,
		Uploader: uploader,
		Relater:  relater,
		Sender:   notifier,
	}, opts...)

	generator := agenda.NewGenerator(st, analyzer,
		agenda.WithLookback(cfg.Matching.FallbackLookback),
		agenda.WithDeadlineWindow(cfg.Matching.DeadlineWindowDays))
	scheduler := agenda.NewScheduler(st, generator, notifier,
		agenda.WithMetrics(instrumentation.NewSchedulerMetrics(metrics)))

	return &service{
		store:     st,
		pipeline:  pipe,
		scheduler: scheduler,
	}, nil
}
