package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gtsplugin/sizecore/internal/config"
	"github.com/gtsplugin/sizecore/internal/core/ecs"
	"github.com/gtsplugin/sizecore/internal/data"
	"github.com/gtsplugin/sizecore/internal/persist"
	"github.com/gtsplugin/sizecore/internal/report"
	"github.com/gtsplugin/sizecore/internal/scripting"
	"github.com/gtsplugin/sizecore/internal/session"
	"github.com/gtsplugin/sizecore/internal/system"
	"github.com/gtsplugin/sizecore/internal/task"
	"github.com/gtsplugin/sizecore/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             gtssim  v0.1.0                \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      size interaction soak harness        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mSession:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := strconv.Itoa(count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Soak loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg := config.Default()
	if p := os.Getenv("GTS_CONFIG"); p != "" {
		loaded, err := config.Load(p)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	} else if _, err := os.Stat("config/gtssim.toml"); err == nil {
		loaded, err := config.Load("config/gtssim.toml")
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Session.Name)

	// 3. Tables and scripts
	printSection("Data")
	interactions, err := data.LoadInteractionTable(cfg.Data.InteractionList)
	if err != nil {
		return fmt.Errorf("load interaction table: %w", err)
	}
	printStat("interaction kinds", interactions.Count())
	effects, err := data.LoadEffectTable(cfg.Data.EffectList)
	if err != nil {
		return fmt.Errorf("load effect table: %w", err)
	}
	printStat("effect kinds", effects.Count())
	actors, err := data.LoadActorTable(cfg.Data.ActorList)
	if err != nil {
		return fmt.Errorf("load actor table: %w", err)
	}
	printStat("actor templates", actors.Count())

	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	printOK("Lua formulas loaded")
	fmt.Println()

	attachPhase, err := task.ParsePhase(cfg.Interaction.AttachPhase)
	if err != nil {
		return fmt.Errorf("interaction.attach_phase: %w", err)
	}
	suspendPhase, err := task.ParsePhase(cfg.Interaction.SuspendedPhase)
	if err != nil {
		return fmt.Errorf("interaction.suspended_phase: %w", err)
	}

	// 4. Sandbox world and session
	clock := world.NewClock()
	clock.SetScale(cfg.Clock.TimeScale)
	ws := world.NewState(clock, log.Named("world"))
	ws.CorpseTime = cfg.Resolution.CorpseTime

	seed := cfg.Session.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	sess := session.New(session.Options{
		Host:            ws,
		Formulas:        engine,
		Interactions:    interactions,
		Effects:         effects,
		AttachPhase:     attachPhase,
		SuspendedPhase:  suspendPhase,
		DefaultStrength: cfg.Interaction.DefaultStrength,
		HugShrinkFor:    cfg.Interaction.HugShrinkFor,
		ResolutionDelay: cfg.Resolution.Delay,
		Seed:            seed,
		Log:             log,
	})
	disp := session.NewDispatcher(sess)

	printSection("World")
	printStat("actors spawned", ws.SpawnAll(actors, rng))
	fmt.Println()

	// 5. Optional kill ledger
	var ledger *system.PersistenceSystem
	if cfg.Database.Enabled {
		printSection("Database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")
		version, err := persist.RunMigrations(ctx, db.Pool, log)
		cancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("migrations at version %d", version))
		fmt.Println()
		ledger = system.NewPersistenceSystem(sess.Bus, persist.NewKillLedgerRepo(db), sess.ID, log, cfg.Database.FlushInterval)
		disp.Register(ledger)
	}

	// 6. Host systems
	requests := make(chan system.Request, 64)
	reports := system.NewReportSystem(sess.Bus, ws, report.New(cfg.Session.Language))
	disp.Register(system.NewInputSystem(requests, sess, 32, log))
	disp.Register(reports)
	disp.Register(system.NewCleanupSystem(ws, disp))

	go readCommands(os.Stdin, requests, sess, log)

	// 7. Start soak loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Clock.FrameRate)
	defer ticker.Stop()
	statsInterval := cfg.Soak.StatsInterval
	if statsInterval <= 0 {
		statsInterval = 5 * time.Second
	}
	stats := time.NewTicker(statsInterval)
	defer stats.Stop()
	var deadline <-chan time.Time
	if cfg.Soak.Duration > 0 {
		deadline = time.After(cfg.Soak.Duration)
	}

	printSection("Running")
	printReady(fmt.Sprintf("frame %s, %d substeps, time scale %.2f", cfg.Clock.FrameRate, cfg.Clock.Substeps, cfg.Clock.TimeScale))
	fmt.Println()

	stop := func(reason string) error {
		if ledger != nil {
			ledger.Flush()
		}
		frames, substeps := disp.Stats()
		log.Info("soak stopped",
			zap.String("reason", reason),
			zap.Uint64("frames", frames),
			zap.Uint64("substeps", substeps),
			zap.String("summary", reports.Summary()),
		)
		return nil
	}

	for {
		select {
		case <-ticker.C:
			dt := clock.Advance(cfg.Clock.FrameRate)
			step := dt / time.Duration(cfg.Clock.Substeps)
			for i := 0; i < cfg.Clock.Substeps; i++ {
				disp.Substep(step)
			}
			disp.Frame(dt)
			if rng.Float64() < cfg.Soak.ActionChance {
				randomRequest(sess, ws, rng, cfg.Soak.Radius, log)
			}
			if ws.Census().Living < 3 {
				n := ws.SpawnAll(actors, rng)
				log.Info("world repopulated", zap.Int("actors", n))
			}
		case <-stats.C:
			frames, substeps := disp.Stats()
			census := ws.Census()
			log.Info("soak stats",
				zap.Uint64("frames", frames),
				zap.Uint64("substeps", substeps),
				zap.Int("living", census.Living),
				zap.Int("corpses", census.Dead),
				zap.Int("held", census.Held),
				zap.Int("hostile", census.Hostile),
				zap.Int("grabs", sess.Grab.Len()),
				zap.Int("hugs", sess.Hug.Len()),
				zap.Int("pending_crush", sess.Crush.Len()),
				zap.Int("pending_shrink", sess.Shrink.Len()),
				zap.Int("tasks", sess.Scheduler.Len()),
				zap.String("summary", reports.Summary()),
			)
		case <-deadline:
			return stop("duration elapsed")
		case sig := <-shutdownCh:
			return stop(sig.String())
		}
	}
}

var randomOps = []string{"grab", "hug", "squeeze", "struggle", "absorb", "release", "crush", "shrink"}

// randomRequest picks a living actor and a neighbour and applies one request
// on the simulation goroutine.
func randomRequest(sess *session.Session, ws *world.State, rng *rand.Rand, radius float64, log *zap.Logger) {
	living := ws.Living()
	if len(living) == 0 {
		return
	}
	actor := living[rng.Intn(len(living))]
	near := ws.Nearby(actor, radius)
	if len(near) == 0 {
		return
	}
	req := system.Request{
		Op:     randomOps[rng.Intn(len(randomOps))],
		Actor:  actor,
		Target: near[rng.Intn(len(near))],
	}
	if req.Op == "squeeze" {
		req.Amount = 5 + rng.Float64()*20
	}
	ok := sess.Apply(req)
	log.Debug("random request",
		zap.String("op", req.Op),
		zap.Stringer("actor", req.Actor),
		zap.Stringer("target", req.Target),
		zap.Bool("ok", ok),
	)
}

// readCommands reads "<op> <actor> [target] [amount]" lines. Ids use the
// index:generation form printed in logs. "drop <actor>" ends a hug right
// away through the guarded path; everything else is queued for the input
// system.
func readCommands(f *os.File, out chan<- system.Request, sess *session.Session, log *zap.Logger) {
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		actor, err := parseID(fields[1])
		if err != nil {
			log.Warn("bad actor id", zap.String("input", fields[1]), zap.Error(err))
			continue
		}
		if fields[0] == "drop" {
			sess.Hug.Drop(actor)
			continue
		}
		req := system.Request{Op: fields[0], Actor: actor}
		if len(fields) > 2 {
			if req.Target, err = parseID(fields[2]); err != nil {
				log.Warn("bad target id", zap.String("input", fields[2]), zap.Error(err))
				continue
			}
		}
		if len(fields) > 3 {
			if req.Amount, err = strconv.ParseFloat(fields[3], 64); err != nil {
				log.Warn("bad amount", zap.String("input", fields[3]), zap.Error(err))
				continue
			}
		}
		select {
		case out <- req:
		default:
			log.Warn("request queue full, command dropped", zap.String("op", req.Op))
		}
	}
}

func parseID(s string) (ecs.EntityID, error) {
	idx, gen, ok := strings.Cut(s, ":")
	if !ok {
		gen = "0"
	}
	i, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return 0, err
	}
	g, err := strconv.ParseUint(gen, 10, 32)
	if err != nil {
		return 0, err
	}
	return ecs.NewEntityID(uint32(i), uint32(g)), nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
