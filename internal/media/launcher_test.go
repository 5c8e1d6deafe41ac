package media

import (
	"errors"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/roundnews/internal/config"
	"github.com/pders01/roundnews/internal/newsapi"
	"github.com/pders01/roundnews/internal/validation"
)

type recorder struct {
	cmds [][]string
	err  error
}

func (r *recorder) start(cmd *exec.Cmd) error {
	r.cmds = append(r.cmds, cmd.Args)
	return r.err
}

func testLauncher(t *testing.T) (*Launcher, *recorder) {
	t.Helper()
	detector, err := NewKindDetector()
	require.NoError(t, err)

	rec := &recorder{}
	return &Launcher{
		browser:       "browser",
		imageViewer:   "viewer",
		defaultOpener: "fallback",
		registry:      testRegistry(),
		detector:      detector,
		validator:     validation.NewArticleURLValidator(),
		start:         rec.start,
	}, rec
}

func TestOpenArticle(t *testing.T) {
	l, rec := testLauncher(t)

	err := l.OpenArticle(newsapi.Article{URL: "https://www.theverge.com/android"})
	require.NoError(t, err)
	require.Len(t, rec.cmds, 1)
	assert.Equal(t, []string{"browser", "--new-tab", "https://www.theverge.com/android"}, rec.cmds[0])
}

func TestOpenImage(t *testing.T) {
	l, rec := testLauncher(t)

	err := l.OpenImage(newsapi.Article{URL: "https://news.site/a", ImageURL: "https://cdn.news.site/a.jpg"})
	require.NoError(t, err)
	require.Len(t, rec.cmds, 1)
	assert.Equal(t, "viewer", rec.cmds[0][0])
	assert.Equal(t, "https://cdn.news.site/a.jpg", rec.cmds[0][len(rec.cmds[0])-1])
}

func TestOpenMissingLinks(t *testing.T) {
	l, rec := testLauncher(t)

	assert.ErrorIs(t, l.OpenArticle(newsapi.Article{}), ErrNoLink)
	assert.ErrorIs(t, l.OpenImage(newsapi.Article{URL: "https://news.site/a"}), ErrNoImage)
	assert.Empty(t, rec.cmds)
}

func TestOpenRejectsUnsafeLinks(t *testing.T) {
	l, rec := testLauncher(t)

	for _, link := range []string{
		"http://localhost:8080/",
		"http://169.254.169.254/latest/meta-data",
		"file:///etc/passwd",
		"javascript:alert(1)",
	} {
		err := l.OpenArticle(newsapi.Article{URL: link})
		assert.Error(t, err, link)
	}
	assert.Empty(t, rec.cmds)
}

func TestOpenDetectsKind(t *testing.T) {
	l, rec := testLauncher(t)

	require.NoError(t, l.Open("https://cdn.news.site/photo.png"))
	require.NoError(t, l.Open("https://news.site/story"))
	require.Len(t, rec.cmds, 2)
	assert.Equal(t, "viewer", rec.cmds[0][0])
	assert.Equal(t, "browser", rec.cmds[1][0])
}

func TestOpenFallsBackToDefaultOpener(t *testing.T) {
	l, rec := testLauncher(t)
	l.browser = "elsewhere"

	require.NoError(t, l.OpenArticle(newsapi.Article{URL: "https://news.site/a"}))
	require.Len(t, rec.cmds, 1)
	assert.Equal(t, []string{"fallback", "https://news.site/a"}, rec.cmds[0])
}

func TestOpenStartError(t *testing.T) {
	l, rec := testLauncher(t)
	rec.err = errors.New("exec: not found")

	err := l.OpenArticle(newsapi.Article{URL: "https://news.site/a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start browser")
}

func TestNewLauncherFallsBackToDefaultOpener(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.TestConfig()
	missing := config.MediaOpeners{
		Browser: []string{"roundnews-missing-browser"},
		Image:   []string{"roundnews-missing-viewer"},
	}
	cfg.Media.Darwin, cfg.Media.Linux, cfg.Media.Windows = missing, missing, missing
	cfg.Media.DefaultOpener = "roundnews-default"

	l := NewLauncher(cfg)
	assert.Equal(t, "roundnews-default", l.browser)
	assert.Equal(t, "roundnews-default", l.imageViewer)
}

func TestNewLauncherFindsInstalledOpener(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sh")
	}
	t.Setenv("HOME", t.TempDir())
	cfg := config.TestConfig()
	found := config.MediaOpeners{Browser: []string{"roundnews-missing", "sh"}, Image: []string{"sh"}}
	cfg.Media.Darwin, cfg.Media.Linux = found, found

	l := NewLauncher(cfg)
	assert.Equal(t, "sh", l.browser)
	assert.Equal(t, "sh", l.imageViewer)
}
