package media

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/pders01/roundnews/internal/config"
	"github.com/pders01/roundnews/internal/debuglog"
	"github.com/pders01/roundnews/internal/newsapi"
	"github.com/pders01/roundnews/internal/validation"
)

var (
	ErrNoLink  = errors.New("article has no link")
	ErrNoImage = errors.New("article has no image")
)

// Launcher hands article links to external applications.
type Launcher struct {
	browser       string
	imageViewer   string
	defaultOpener string
	registry      *OpenerRegistry
	detector      *KindDetector
	validator     *validation.URLValidator

	// start runs cmd without waiting for it.
	start func(cmd *exec.Cmd) error
}

func NewLauncher(cfg *config.Config) *Launcher {
	registry, err := NewOpenerRegistry()
	if err != nil {
		debuglog.Warnf("media: %v", err)
		registry = &OpenerRegistry{openers: map[string]OpenerDefinition{}}
	}

	detector, err := NewKindDetector()
	if err != nil {
		debuglog.Warnf("media: %v", err)
		detector = &KindDetector{config: &KindsConfig{}}
	}

	defaultOpener := cfg.Media.DefaultOpener
	if defaultOpener == "" {
		defaultOpener = detector.DefaultOpener()
	}

	openers := platformOpeners(&cfg.Media)
	l := &Launcher{
		browser:       registry.FindAvailable(openers.Browser),
		imageViewer:   registry.FindAvailable(openers.Image),
		defaultOpener: defaultOpener,
		registry:      registry,
		detector:      detector,
		validator:     validation.NewArticleURLValidator(),
		start:         startDetached,
	}
	if l.browser == "" {
		l.browser = defaultOpener
	}
	if l.imageViewer == "" {
		l.imageViewer = defaultOpener
	}

	debuglog.WithFields(debuglog.Fields{
		"browser": l.browser,
		"image":   l.imageViewer,
	}).Debugf("media: launcher ready")
	return l
}

func platformOpeners(m *config.MediaConfig) config.MediaOpeners {
	switch runtime.GOOS {
	case "darwin":
		return m.Darwin
	case "windows":
		return m.Windows
	default:
		return m.Linux
	}
}

// OpenArticle opens the article's page in the browser.
func (l *Launcher) OpenArticle(a newsapi.Article) error {
	if a.URL == "" {
		return ErrNoLink
	}
	return l.open(a.URL, KindPage)
}

// OpenImage opens the article's lead image in the image viewer.
func (l *Launcher) OpenImage(a newsapi.Article) error {
	if a.ImageURL == "" {
		return ErrNoImage
	}
	return l.open(a.ImageURL, KindImage)
}

// Open opens link with the opener for whatever it points at.
func (l *Launcher) Open(link string) error {
	return l.open(link, l.detector.Detect(link))
}

func (l *Launcher) open(link string, kind Kind) error {
	normalized, err := l.validator.ValidateAndNormalize(link)
	if err != nil {
		return fmt.Errorf("refusing to open link: %w", err)
	}

	name := l.browser
	if kind == KindImage {
		name = l.imageViewer
	}
	if name == "" {
		name = l.defaultOpener
	}
	if name == "" {
		return errors.New("no application found to open link")
	}

	cmd, err := l.registry.Command(name, kind, normalized)
	if err != nil {
		debuglog.Warnf("media: %v, using %s", err, l.defaultOpener)
		if cmd, err = l.registry.Command(l.defaultOpener, kind, normalized); err != nil {
			cmd = exec.Command(l.defaultOpener, normalized)
		}
	}

	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	debuglog.WithFields(debuglog.Fields{"opener": name, "kind": kind.String()}).Infof("media: opened %s", normalized)
	return nil
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
