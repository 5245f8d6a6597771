package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"smartreceipts/models"
	"smartreceipts/pkg/applog"
	"smartreceipts/pkg/config"
	"smartreceipts/pkg/imgload"
	"smartreceipts/pkg/ocr"
	"smartreceipts/pkg/ocr/engines"
	"smartreceipts/pkg/uploads"
)

// seenSet remembers inbox files already handed to a worker so the initial
// listing and watch events never process the same name twice.
type seenSet struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{names: make(map[string]struct{}, 256)}
}

// claim reports whether name was not seen before, marking it seen.
func (s *seenSet) claim(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[name]; ok {
		return false
	}
	s.names[name] = struct{}{}
	return true
}

type processor struct {
	dir        string
	archiveDir string
	user       models.User
	uploads    *uploads.Service
	seen       *seenSet
}

// Main: scans a directory of receipt images for one user: stores each as an
// upload, scans it, saves the receipt and archives the original. Optional
// watch mode keeps processing new files.
func main() {
	dirFlag := flag.String("dir", "public/inbox", "directory to scan for receipt images")
	archiveDir := flag.String("archive-dir", "public/processed", "where processed originals are moved")
	username := flag.String("user", "admin", "username that owns the scanned receipts")
	dryRun := flag.Bool("dry-run", false, "Skip all DB queries and writes; just list / optionally scan (see --simulate-ocr)")
	simulateOCR := flag.Bool("simulate-ocr", false, "In dry-run: run the full scan and print what would be stored")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	verbose := flag.Bool("verbose", false, "Verbose per-file logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	level := cfg.Log.Level
	if *verbose {
		level = "debug"
	}
	applog.Setup(level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files := listImageFiles(*dirFlag)
	if *dryRun {
		logrus.Infof("Dry-run: scanning %s (no DB interaction), %d candidate files", *dirFlag, len(files))
		if *simulateOCR {
			simulate(ctx, cfg, *dirFlag, files)
		} else {
			for _, f := range files {
				fmt.Println(f)
			}
		}
		return
	}

	db := mustOpenDB(cfg)
	scanner, err := engines.NewScanner(ctx, cfg.OCR)
	if err != nil {
		logrus.WithError(err).Fatal("ocr engine")
	}
	defer scanner.Close()

	p := &processor{
		dir:        *dirFlag,
		archiveDir: *archiveDir,
		user:       resolveUser(db, *username),
		uploads:    uploads.New(db, scanner, cfg.Server.UploadBase),
		seen:       newSeenSet(),
	}

	n := effectiveWorkers(*workers)
	logrus.Infof("Scanning %d files (workers=%d)", len(files), n)
	initial := make(chan string, len(files))
	for _, f := range files {
		initial <- f
	}
	close(initial)
	p.runWorkerPool(ctx, initial, n)

	if *watch {
		if err := p.watchDirectory(ctx, n); err != nil {
			logrus.WithError(err).Fatal("watch failed")
		}
	}
}

func mustOpenDB(cfg *config.Config) *gorm.DB {
	if cfg.Database.DSN == "" {
		logrus.Fatal("DB_DSN must be set in environment to run this tool")
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	return db
}

func resolveUser(db *gorm.DB, username string) models.User {
	var u models.User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		logrus.WithError(err).Fatalf("user %q not found", username)
	}
	return u
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func simulate(ctx context.Context, cfg *config.Config, dir string, files []string) {
	scanner, err := engines.NewScanner(ctx, cfg.OCR)
	if err != nil {
		logrus.WithError(err).Fatal("ocr engine")
	}
	defer scanner.Close()
	for _, f := range files {
		r, err := scanner.ScanFile(ctx, filepath.Join(dir, f))
		if err != nil {
			logrus.WithField("file", f).Info(ocr.UserMessage(err))
			continue
		}
		logrus.WithFields(logrus.Fields{
			"file":  f,
			"store": r.StoreName,
			"total": r.TotalAmount,
			"items": len(r.Items),
		}).Info("would store")
	}
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !imgload.Supported(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// runWorkerPool drains names with n workers and returns when names is closed
// and every file is done, or when ctx is cancelled.
func (p *processor) runWorkerPool(ctx context.Context, names <-chan string, n int) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case name, ok := <-names:
					if !ok {
						return
					}
					if p.seen.claim(name) {
						p.processSingleFile(ctx, name)
					}
				}
			}
		}()
	}
	wg.Wait()
}

func (p *processor) watchDirectory(ctx context.Context, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(p.dir); err != nil {
		return err
	}
	logrus.Infof("Watching %s (debounced) ...", p.dir)

	fileCh := make(chan string, 256)
	go debounce(ctx, w, fileCh)
	p.runWorkerPool(ctx, fileCh, workers)
	return nil
}

// debounce forwards a created or written file once it has been quiet for
// 300ms, so half-copied files are not picked up.
func debounce(ctx context.Context, w *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	pending := map[string]time.Time{}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if imgload.Supported(name) {
				pending[name] = time.Now()
			}
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) > 300*time.Millisecond {
					select {
					case out <- name:
						delete(pending, name)
					case <-ctx.Done():
						return
					}
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Warn("watch error")
		}
	}
}

// processSingleFile stores, scans and archives one inbox file. A failed scan
// still archives the original: the stored copy is retried by the server.
func (p *processor) processSingleFile(ctx context.Context, name string) {
	ctx, _ = applog.WithCorrelationID(ctx)
	log := applog.ForContext(ctx).WithField("file", name)
	src := filepath.Join(p.dir, name)

	f, err := os.Open(src)
	if err != nil {
		log.WithError(err).Warn("open failed")
		return
	}
	up, err := p.uploads.Store(ctx, p.user.ID, name, f, imgload.MimeFromExt(name))
	f.Close()
	if err != nil {
		log.WithError(err).Error("store upload")
		return
	}
	log.Infof("NEW upload id=%d", up.ID)

	if r, err := p.uploads.Process(ctx, &up); err == nil {
		log.Infof("RECEIPT id=%d store=%q total=%.2f items=%d", r.ID, r.StoreName, r.TotalAmount, len(r.Items))
	}

	if err := moveToProcessed(src, p.archiveDir, name); err != nil {
		log.WithError(err).Warn("failed to move processed file")
	} else {
		log.Debugf("moved processed %s to %s", name, p.archiveDir)
	}
}

// moveToProcessed moves src into archiveDir, downscaling images over 1 MB.
// It attempts an atomic rename and falls back to copy+remove when necessary.
func moveToProcessed(src, archiveDir, name string) error {
	const maxBytes = 1_000_000
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(archiveDir, name)

	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if fi.Size() <= maxBytes {
		return moveFile(src, dst)
	}
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return moveFile(src, dst)
	}
	// Size roughly scales with area.
	scale := math.Sqrt(float64(maxBytes) / float64(fi.Size()))
	scale = math.Max(0.1, math.Min(scale, 0.95))
	w := int(math.Max(1, math.Round(float64(img.Bounds().Dx())*scale)))
	h := int(math.Max(1, math.Round(float64(img.Bounds().Dy())*scale)))
	img = imaging.Resize(img, w, h, imaging.Lanczos)
	if err := imaging.Save(img, dst, imaging.JPEGQuality(85)); err != nil {
		return moveFile(src, dst)
	}
	return os.Remove(src)
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
