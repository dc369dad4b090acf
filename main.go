package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JxyV/Museum-RAG/api"
	"github.com/JxyV/Museum-RAG/config"
	"github.com/JxyV/Museum-RAG/database"
	"github.com/JxyV/Museum-RAG/embeddings"
	"github.com/JxyV/Museum-RAG/index"
	"github.com/JxyV/Museum-RAG/llm"
	"github.com/JxyV/Museum-RAG/rag"
	"github.com/JxyV/Museum-RAG/retrieval"
	"github.com/JxyV/Museum-RAG/timing"
	"github.com/JxyV/Museum-RAG/voice"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "chat":
		chatCmd(cfg, logger, os.Args[2:])
	case "voice":
		voiceCmd(cfg, logger, os.Args[2:])
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "voices":
		voicesCmd()
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// answerStack bundles the pieces every question-answering command needs.
type answerStack struct {
	pool     *pgxpool.Pool
	store    *index.PostgresStore
	embedder embeddings.Embedder
	service  *rag.Service
}

func (a *answerStack) Close() {
	a.pool.Close()
}

func newAnswerStack(ctx context.Context, cfg config.Config, logger *log.Logger) (*answerStack, error) {
	if err := cfg.Validate(false); err != nil {
		return nil, err
	}

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres connection: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("embedder setup: %w", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("llm setup: %w", err)
	}

	store := index.NewPostgresStore(pool, cfg.CollectionName, cfg.Embeddings.Dimension)
	store.MaxDistance = cfg.MaxDistance
	retriever := retrieval.New(store, embedder)
	generator := rag.NewGenerator(llmClient)
	service := rag.NewService(retriever, generator, logger, cfg.TopK)

	return &answerStack{pool: pool, store: store, embedder: embedder, service: service}, nil
}

func ingestCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	docsDir := flags.String("dir", cfg.DocsDir, "path to directory containing documents (.pdf, .txt, .md)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}

	if err := cfg.Validate(false); err != nil {
		logger.Fatalf("configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	store := index.NewPostgresStore(pool, cfg.CollectionName, cfg.Embeddings.Dimension)
	indexer := index.NewIndexer(store, embedder, logger, cfg.ChunkSize, cfg.ChunkOverlap)

	logger.Printf("ingesting documents from %s using %s/%s embeddings", *docsDir, strings.ToUpper(cfg.Embeddings.Provider), cfg.Embeddings.Model)
	sw := timing.Start()
	count, err := indexer.IngestDirectory(ctx, *docsDir)
	if err != nil {
		logger.Fatalf("ingestion failed: %v", err)
	}
	logger.Printf("indexed %d chunks into collection %s in %.1f s", count, cfg.CollectionName, sw.Elapsed().Seconds())
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	question := flags.String("question", "", "question to ask")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}

	if strings.TrimSpace(*question) == "" {
		fmt.Print("请输入问题: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*question = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatalf("read question: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stack, err := newAnswerStack(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup: %v", err)
	}
	defer stack.Close()

	result, err := stack.service.Answer(ctx, *question, nil, func(token string) {
		fmt.Print(token)
	})
	if err != nil {
		fmt.Println()
		logger.Fatalf("answer failed: %v", err)
	}
	fmt.Println()
	printCitations(result.Citations)
	printStats(result)
}

func chatCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("chat", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse chat flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stack, err := newAnswerStack(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup: %v", err)
	}
	defer stack.Close()

	session := &rag.Session{}
	fmt.Println("进入问答模式，输入 exit 退出，输入 reset 清空对话历史。")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit", "退出":
			return
		case "reset", "清空":
			session.Reset()
			fmt.Println("对话历史已清空。")
			continue
		}

		result, err := stack.service.Answer(ctx, line, session, func(token string) {
			fmt.Print(token)
		})
		fmt.Println()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Printf("answer failed: %v", err)
			continue
		}
		printCitations(result.Citations)
		printStats(result)
	}
	if err := scanner.Err(); err != nil {
		logger.Fatalf("read input: %v", err)
	}
}

func voiceCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("voice", flag.ExitOnError)
	mode := flags.String("mode", cfg.Voice.Mode, "input mode: voice, text, or hybrid")
	voiceName := flags.String("voice", cfg.Voice.TTSVoice, "synthesis voice code (see the voices command)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse voice flags: %v", err)
	}
	cfg.Voice.Mode = *mode
	cfg.Voice.TTSVoice = *voiceName

	if err := cfg.Validate(true); err != nil {
		logger.Fatalf("configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stack, err := newAnswerStack(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup: %v", err)
	}
	defer stack.Close()

	pipeline, err := voice.NewPipeline(cfg, logger)
	if err != nil {
		logger.Fatalf("voice setup: %v", err)
	}

	recordDuration := time.Duration(cfg.Voice.RecordSeconds) * time.Second
	session := &rag.Session{}

	switch cfg.Voice.Mode {
	case config.VoiceModeVoice:
		fmt.Printf("语音模式：每轮自动录音 %d 秒，Ctrl+C 退出。\n", cfg.Voice.RecordSeconds)
	case config.VoiceModeText:
		fmt.Println("文字模式：输入问题，回答可自动朗读，输入 exit 退出。")
	default:
		fmt.Printf("混合模式：直接输入问题，或按回车开始 %d 秒录音，输入 exit 退出。\n", cfg.Voice.RecordSeconds)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for ctx.Err() == nil {
		question, ok := nextQuestion(ctx, cfg, pipeline, scanner, recordDuration, logger)
		if !ok {
			return
		}
		if question == "" {
			continue
		}

		fmt.Printf("问: %s\n", question)
		result, err := stack.service.Answer(ctx, question, session, func(token string) {
			fmt.Print(token)
		})
		fmt.Println()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Printf("answer failed: %v", err)
			continue
		}
		printCitations(result.Citations)
		printStats(result)

		if cfg.Voice.AutoTTS && result.Text != "" {
			speech, err := pipeline.SpeakStreaming(ctx, result.Text)
			if err != nil {
				logger.Printf("synthesis failed: %v", err)
				continue
			}
			if speech.Empty() {
				logger.Printf("synthesis produced no audio")
				continue
			}
			fmt.Printf("[首包延迟 %.0f ms | 合成耗时 %.0f ms | 合成字符数 %d]\n",
				timing.Ms(speech.FirstAudio), timing.Ms(speech.Total), speech.ChineseChars)
		}
	}
}

// nextQuestion obtains the next user question according to the input mode.
// ok is false when the loop should stop.
func nextQuestion(ctx context.Context, cfg config.Config, pipeline *voice.Pipeline, scanner *bufio.Scanner, recordDuration time.Duration, logger *log.Logger) (question string, ok bool) {
	listen := func() (string, bool) {
		fmt.Printf("录音中（%d 秒）...\n", cfg.Voice.RecordSeconds)
		text, err := pipeline.ListenOnce(ctx, recordDuration)
		if err != nil {
			if ctx.Err() != nil {
				return "", false
			}
			logger.Printf("voice input failed: %v", err)
			return "", true
		}
		if text == "" {
			fmt.Println("未识别到语音。")
		}
		return text, true
	}

	switch cfg.Voice.Mode {
	case config.VoiceModeVoice:
		return listen()
	case config.VoiceModeText:
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return "", false
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" || line == "退出" {
			return "", false
		}
		return line, true
	default: // hybrid
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return "", false
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "exit", "quit", "退出":
			return "", false
		case "":
			return listen()
		}
		return line, true
	}
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	port := flags.Int("port", cfg.Port, "port to listen on")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stack, err := newAnswerStack(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup: %v", err)
	}
	defer stack.Close()

	indexer := index.NewIndexer(stack.store, stack.embedder, logger, cfg.ChunkSize, cfg.ChunkOverlap)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: api.New(cfg, stack.service, indexer, logger),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("server shutdown: %v", err)
		}
	}()

	logger.Printf("listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server: %v", err)
	}
}

func voicesCmd() {
	fmt.Println("可用音色:")
	for _, v := range voice.AvailableVoices() {
		fmt.Printf("  %-10s %s\n", v.Code, v.Name)
	}
}

func clearCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}

	if !*confirmed {
		fmt.Printf("This will permanently delete collection %s from Postgres. Continue? [y/N]: ", cfg.CollectionName)
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logger.Fatalf("read confirmation: %v", err)
			}
			logger.Println("clear aborted")
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			logger.Println("clear aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	store := index.NewPostgresStore(pool, cfg.CollectionName, cfg.Embeddings.Dimension)
	if err := store.Drop(ctx); err != nil {
		logger.Fatalf("drop collection: %v", err)
	}
	logger.Printf("collection %s removed", cfg.CollectionName)
}

func printCitations(citations []rag.Citation) {
	if len(citations) == 0 {
		return
	}
	fmt.Println("\n--- 引用 ---")
	for i, c := range citations {
		fmt.Printf("%d. %s (%s)\n", i+1, c.Source, c.Locator)
	}
}

func printStats(result rag.AnswerResult) {
	t := result.Timings
	parts := []string{fmt.Sprintf("检索耗时 %.0f ms", timing.Ms(t.Retrieval))}
	if t.FirstToken > 0 {
		parts = append(parts, fmt.Sprintf("首个 token 延迟 %.0f ms", timing.Ms(t.FirstToken)))
	}
	parts = append(parts,
		fmt.Sprintf("生成耗时 %.0f ms", timing.Ms(t.Generation)),
		fmt.Sprintf("总耗时 %.0f ms", timing.Ms(t.Total)),
		fmt.Sprintf("中文字符数 %d", rag.CountChineseChars(result.Text)),
	)
	fmt.Printf("[%s]\n", strings.Join(parts, " | "))
}

func printUsage() {
	fmt.Println("Usage: museum-rag <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  ingest   Rebuild the chunk collection from a document directory (--dir)")
	fmt.Println("  ask      Answer a single question (--question)")
	fmt.Println("  chat     Interactive multi-turn question answering")
	fmt.Println("  voice    Interactive loop with speech input and spoken answers (--mode, --voice)")
	fmt.Println("  serve    Expose the pipeline over HTTP (--port)")
	fmt.Println("  voices   List synthesis voices")
	fmt.Println("  clear    Drop the chunk collection (--confirm)")
}
