// Package pipeline orchestrates one capture run: search the registry
// for newly opened companies, register each one in the CRM, send the
// first-contact email and record the outcome in the ledger.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ikasa-digital/leads-cli/internal/config"
	"github.com/ikasa-digital/leads-cli/internal/gateway"
	"github.com/ikasa-digital/leads-cli/internal/ledger"
	"github.com/ikasa-digital/leads-cli/internal/model"
	"github.com/ikasa-digital/leads-cli/internal/normalize"
	"github.com/ikasa-digital/leads-cli/internal/outreach"
	"github.com/ikasa-digital/leads-cli/pkg/cnpja"
	"github.com/ikasa-digital/leads-cli/pkg/fourc"
	"github.com/ikasa-digital/leads-cli/pkg/gclick"
)

// crmSource tags every lead we create so CRM users can tell captured
// leads from manually entered ones.
const crmSource = "CNPJá Automation"

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeDuplicated
	outcomeFailed
)

// Pipeline wires the registry, the CRM, the email dispatcher and the
// ledger into a single capture run.
type Pipeline struct {
	cfg      *config.Config
	ledger   ledger.Ledger
	registry cnpja.Client
	crm      fourc.Client
	notifier gclick.Client

	now func() time.Time
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, led ledger.Ledger, registry cnpja.Client, crm fourc.Client, notifier gclick.Client) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		ledger:   led,
		registry: registry,
		crm:      crm,
		notifier: notifier,
		now:      time.Now,
	}
}

// Run executes one capture run. The returned summary always satisfies
// Found == Processed + Duplicated + Failed. A non-nil error means the
// run aborted; per-record failures only raise the Failed counter.
func (p *Pipeline) Run(ctx context.Context) (*model.RunSummary, error) {
	runID := uuid.NewString()
	start := p.now()

	windowDays := p.cfg.Pipeline.WindowDays
	if windowDays <= 0 {
		windowDays = 1
	}
	since := start.AddDate(0, 0, -windowDays).Format("2006-01-02")
	until := start.Format("2006-01-02")

	log := zap.L().With(zap.String("run_id", runID), zap.String("since", since))
	log.Info("pipeline: starting capture run",
		zap.String("state", p.cfg.Pipeline.State),
		zap.Int("limit", p.cfg.Pipeline.Limit),
		zap.Int("workers", p.workers()),
	)

	summary := &model.RunSummary{
		RunID:      runID,
		SearchDate: since,
		Status:     model.RunStatusRunning,
	}

	offices, err := p.registry.Search(ctx, cnpja.Query{
		FoundedGTE: since,
		FoundedLTE: until,
		State:      p.cfg.Pipeline.State,
		Limit:      p.cfg.Pipeline.Limit,
	})
	if err != nil {
		p.finish(ctx, summary, start, err)
		return summary, eris.Wrap(err, "pipeline: registry search")
	}
	summary.Found = len(offices)

	if len(offices) == 0 {
		log.Info("pipeline: no new companies found")
		p.finish(ctx, summary, start, nil)
		return summary, nil
	}

	var mu sync.Mutex
	tally := func(o outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch o {
		case outcomeProcessed:
			summary.Processed++
		case outcomeDuplicated:
			summary.Duplicated++
		case outcomeFailed:
			summary.Failed++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for _, office := range offices {
		office := office
		g.Go(func() error {
			o, recErr := p.processRecord(gctx, log, office)
			if recErr != nil {
				tally(outcomeFailed)
				return recErr
			}
			tally(o)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Records still in flight when the group cancelled never got
		// tallied; charge them to Failed so the counters reconcile.
		mu.Lock()
		summary.Failed += summary.Found - summary.Processed - summary.Duplicated - summary.Failed
		mu.Unlock()
		p.finish(ctx, summary, start, err)
		return summary, eris.Wrap(err, "pipeline: capture run aborted")
	}

	p.finish(ctx, summary, start, nil)
	log.Info("pipeline: capture run complete",
		zap.Int("found", summary.Found),
		zap.Int("processed", summary.Processed),
		zap.Int("duplicated", summary.Duplicated),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

func (p *Pipeline) workers() int {
	if p.cfg.Pipeline.Workers > 0 {
		return p.cfg.Pipeline.Workers
	}
	return 1
}

// processRecord takes one raw registry record through normalization,
// CRM registration, outreach and the ledger insert. A returned error
// aborts the whole run; everything else is absorbed into the outcome.
func (p *Pipeline) processRecord(ctx context.Context, log *zap.Logger, office cnpja.Office) (o outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: record panicked", zap.String("tax_id", office.TaxID), zap.Any("panic", r))
			o, err = outcomeFailed, nil
		}
	}()

	company, err := normalize.Normalize(office)
	if err != nil {
		reason, _ := normalize.Reason(err)
		log.Warn("pipeline: record rejected",
			zap.String("tax_id", office.TaxID),
			zap.String("reason", string(reason)),
		)
		return outcomeFailed, nil
	}
	log = log.With(zap.String("tax_id", company.TaxID), zap.String("company", company.DisplayName()))

	exists, err := p.ledger.Exists(ctx, company.TaxID)
	if err != nil {
		log.Error("pipeline: ledger lookup failed", zap.Error(err))
		return outcomeFailed, nil
	}
	if exists {
		log.Info("pipeline: already captured, skipping")
		return outcomeDuplicated, nil
	}

	created, err := p.crm.CreateLead(ctx, p.leadPayload(company))
	if err != nil {
		if gateway.IsAuth(err) {
			return outcomeFailed, err
		}
		log.Error("pipeline: crm registration failed", zap.Error(err))
		return outcomeFailed, nil
	}
	if created.AlreadyExists {
		log.Info("pipeline: crm already knows this lead", zap.String("crm_lead_id", created.ID))
	}

	emailSent := false
	if company.Email != "" {
		msg, msgErr := outreach.BuildMessage(company, outreach.Options{
			SenderEmail: p.cfg.Outreach.SenderEmail,
			SenderName:  p.cfg.Outreach.SenderName,
			TemplateID:  p.cfg.Outreach.TemplateID,
		})
		if msgErr != nil {
			log.Warn("pipeline: outreach build failed", zap.Error(msgErr))
		} else if sent, sendErr := p.notifier.SendEmail(ctx, msg); sendErr != nil {
			if gateway.IsAuth(sendErr) {
				return outcomeFailed, sendErr
			}
			// The lead is registered either way; a lost email is not a
			// lost record.
			log.Warn("pipeline: outreach email failed", zap.Error(sendErr))
		} else {
			emailSent = true
			log.Info("pipeline: outreach email sent", zap.String("message_id", sent.MessageID))
		}
	} else {
		log.Info("pipeline: no email address, skipping outreach")
	}

	if _, err := p.ledger.Insert(ctx, company, created.ID, emailSent); err != nil {
		if eris.Is(err, ledger.ErrDuplicateTaxID) {
			log.Info("pipeline: concurrent capture, recorded as duplicate")
			return outcomeDuplicated, nil
		}
		log.Error("pipeline: ledger insert failed", zap.Error(err))
		return outcomeFailed, nil
	}

	return outcomeProcessed, nil
}

func (p *Pipeline) leadPayload(c model.Company) fourc.LeadPayload {
	return fourc.LeadPayload{
		Source:   crmSource,
		Status:   "new",
		Priority: "medium",
		Company: fourc.LeadCompany{
			TaxID:        c.TaxID,
			Name:         c.LegalName,
			TradeName:    c.TradeName,
			Email:        c.Email,
			Phone:        c.Phone,
			Address:      c.Address,
			City:         c.City,
			State:        c.State,
			ZipCode:      c.Zip,
			OpeningDate:  c.FoundingDate.Format("2006-01-02"),
			MainActivity: c.MainActivity,
			Status:       c.Status,
		},
		Tags: []string{"automacao", "cnpja", "empresa-nova"},
		CustomFields: map[string]string{
			"cnpj_formatado": c.FormattedTaxID(),
			"data_abertura":  c.FoundingDate.Format("2006-01-02"),
		},
	}
}

// finish stamps the summary and writes the execution log row. Logging
// failures are reported but never override the run outcome.
func (p *Pipeline) finish(ctx context.Context, summary *model.RunSummary, start time.Time, runErr error) {
	summary.Elapsed = p.now().Sub(start)
	if runErr != nil {
		summary.Status = model.RunStatusFailed
	} else {
		summary.Status = model.RunStatusCompleted
	}

	entry := model.ExecutionLog{
		ExecutionDate: summary.SearchDate,
		Found:         summary.Found,
		Processed:     summary.Processed,
		Duplicated:    summary.Duplicated,
		Failed:        summary.Failed,
		ElapsedSecs:   summary.Elapsed.Seconds(),
		Status:        summary.Status,
	}
	if runErr != nil {
		entry.ErrorMessage = fmt.Sprintf("%v", runErr)
	}

	if _, err := p.ledger.LogRun(ctx, entry); err != nil {
		zap.L().Error("pipeline: failed to write execution log",
			zap.String("run_id", summary.RunID),
			zap.Error(err),
		)
	}
}
