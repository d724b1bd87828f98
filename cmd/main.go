package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"ask-ai/internal/chat"
	"ask-ai/internal/config"
	"ask-ai/internal/db"
	"ask-ai/internal/document"
	"ask-ai/internal/guardrail"
	"ask-ai/internal/helper"
	"ask-ai/internal/llmservice"
	"ask-ai/internal/metrics"
	"ask-ai/internal/models"
	"ask-ai/internal/parser"
	"ask-ai/internal/response"
	"ask-ai/internal/server"
	"ask-ai/internal/tokens"
)

const configFilePath = "./configs/config.yaml"

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the document file")
	prompt := flag.String("prompt", "", "Request type, e.g. DOCUMENT_SUMMARY (routed from the question when empty)")
	question := flag.String("question", "", "Question to ask about the document")
	selectPage := flag.Int("select-page", 0, "Summarize the text of this page as a selection")
	serve := flag.Bool("serve", false, "Run the HTTP server")
	dryRun := flag.Bool("dry-run", false, "Parse the document and count tokens, do not call the model")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	helper.SetupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		runServer(ctx, cfg)
		return
	}

	if *filePath == "" {
		log.Fatal().Msg("Please provide a document file using the -file flag, or -serve to run the server")
	}
	askDocument(ctx, cfg, *filePath, *prompt, *question, *selectPage, *dryRun)
}

type pipeline struct {
	svc       *chat.Service
	estimator *tokens.Estimator
	metrics   *metrics.Metrics
	store     *db.Store
}

func (p *pipeline) Close() {
	if p.store != nil {
		p.store.Close()
	}
}

func newPipeline(ctx context.Context, cfg *config.Config) *pipeline {
	m := metrics.New()

	var backend llmservice.Backend
	llm, err := llmservice.New(&cfg.LLM)
	if err != nil {
		log.Error().Err(err).Msg("Chat service not available, check OPENAI_API_KEY")
	} else {
		backend = llm
	}

	estimator := tokens.NewEstimator(
		tokens.WithEncoding(cfg.Tokens.Encoding),
		tokens.WithRemote(llmservice.RemoteCounter(cfg.Tokens.RemoteModel)),
		tokens.WithTimeout(time.Duration(cfg.Tokens.CountTimeoutMs)*time.Millisecond),
		tokens.WithMetrics(m),
	)

	orch := chat.NewOrchestrator(backend, guardrail.NewRegistry(cfg.GuardRails), estimator,
		chat.WithBudget(cfg.Budget),
		chat.WithMetrics(m),
	)

	p := &pipeline{estimator: estimator, metrics: m}
	var recorder chat.Recorder
	if cfg.Database.DSN != "" {
		store, err := db.Open(ctx, &cfg.Database)
		if err != nil {
			log.Error().Err(err).Msg("Error opening transcript store, continuing without it")
		} else {
			p.store = store
			recorder = store
		}
	}
	p.svc = chat.NewService(orch, cfg, m, recorder)
	return p
}

func runServer(ctx context.Context, cfg *config.Config) {
	p := newPipeline(ctx, cfg)
	defer p.Close()

	sessions := server.NewSessionStore(time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute)
	srv := server.New(p.svc, p.estimator, sessions, p.metrics)
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}

func askDocument(ctx context.Context, cfg *config.Config, filePath, prompt, question string, selectPage int, dryRun bool) {
	viewer, err := parser.Open(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}

	loadCtx, cancel := context.WithTimeout(ctx, time.Minute)
	doc, err := document.Build(loadCtx, viewer)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading document")
	}

	p := newPipeline(ctx, cfg)
	defer p.Close()

	if dryRun {
		n, method := p.estimator.Count(ctx, doc.Content)
		helper.PrettyPrint(map[string]any{
			"filename":    doc.Filename,
			"pageCount":   doc.PageCount,
			"failedPages": doc.FailedPages,
			"tokens":      n,
			"method":      method,
		})
		return
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session")
	}
	sess := chat.NewSession(id)
	if _, err := p.svc.Load(ctx, sess, doc); err != nil {
		log.Warn().Err(err).Msg("Contextual questions unavailable")
	}

	log.Info().Msg("Suggested questions: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(sess.Board().Slots())

	q, ok := buildQuestion(sess, doc, viewer, prompt, question, selectPage)
	if !ok {
		return
	}

	ans, err := p.svc.Ask(ctx, sess, q)
	if err != nil {
		var reqErr *chat.RequestError
		if errors.As(err, &reqErr) {
			log.Fatal().Err(reqErr.Err).Str("request_type", reqErr.RequestType.String()).Msg("Error querying")
		}
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s %s\n\n", q.Type, q.Text)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", ans.Response)

	// follow the first citation the way a page link click would
	if pages := response.Citations(ans.Response); len(pages) > 0 {
		if err := viewer.SetCurrentPage(pages[0]); err == nil {
			log.Debug().Int("page", viewer.CurrentPage()).Msg("Moved to first cited page")
		}
	}
}

func buildQuestion(sess *chat.Session, doc *document.Text, viewer *parser.FileViewer, prompt, question string, selectPage int) (chat.Question, bool) {
	if selectPage > 0 {
		text, ok := doc.Page(selectPage)
		if !ok {
			log.Fatal().Int("page", selectPage).Msg("Page not found")
		}
		if err := viewer.SetCurrentPage(selectPage); err != nil {
			log.Fatal().Err(err).Msg("Error selecting page")
		}
		return chat.Question{Type: models.SelectedTextSummary, Text: document.SelectionMarker(selectPage, text)}, true
	}

	if prompt != "" {
		return chat.Question{Type: models.RequestType(prompt), Text: question}, true
	}
	if question == "" {
		return chat.Question{}, false
	}

	if cfg, found := sess.Board().Find(question); found {
		return chat.Question{Type: cfg.RequestType, Text: cfg.Content}, true
	}
	intent := chat.RouteIntent(question, "")
	if intent.Notice != "" {
		fmt.Println(intent.Notice)
		return chat.Question{}, false
	}
	return chat.Question{Type: intent.Type, Text: question}, true
}
