// Package main provides the entry point for the voxread CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/voxread/voxread/cache"
	"github.com/voxread/voxread/extract"
	"github.com/voxread/voxread/speech"
	"github.com/voxread/voxread/speech/audio"
	"github.com/voxread/voxread/tui"
)

// piperSampleRate is the output rate of the piper medium voices.
const piperSampleRate = 22050

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile  string
	useTUI      bool
	literalText bool
	pagesFlag   string
	rateFlag    float64
	volumeFlag  float64
	voiceFlag   string
	width       uint
	debug       bool
	piperBinary string
	piperModel  string

	rootCmd = &cobra.Command{
		Use:   "voxread [SOURCE]",
		Short: "Read documents aloud from the command line",
		Long: paragraph(
			fmt.Sprintf("\nTurn PDFs, webpages, epubs and text into plain words and %s. Without a terminal attached, the extracted text is printed instead.", keyword("read them aloud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	useTUI = viper.GetBool("tui")
	debug = viper.GetBool("debug")
	rateFlag = viper.GetFloat64("rate")
	volumeFlag = viper.GetFloat64("volume")
	voiceFlag = viper.GetString("voice")
	piperBinary = viper.GetString("piper.binary")
	piperModel = viper.GetString("piper.model")
	width = viper.GetUint("width")

	if debug {
		enableDebugLog()
	}

	if model, err := homedir.Expand(piperModel); err == nil {
		piperModel = model
	}

	if (speech.Settings{Rate: rateFlag, Volume: volumeFlag}).Validate() != nil {
		return fmt.Errorf("invalid rate/volume: rate must be in [0.1, 3.0], volume in [0.0, 1.0]")
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if !cmd.Flags().Changed("tui") {
		useTUI = isTerminal
	}

	// Detect terminal width for the preview pane.
	if !cmd.Flags().Changed("width") {
		if isTerminal && width == 0 {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				width = uint(w)
			}
			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// newService builds the extraction pipeline with its persistent cache.
// PDF, OCR and office collaborators are not bundled; those formats
// surface a clear unsupported error until one is wired in.
func newService() (*extract.Service, func()) {
	var store cache.Store = cache.NopStore{}
	scope := gap.NewScope(gap.User, "voxread")
	if path, err := scope.CachePath("extractions.zst"); err == nil {
		if fs, err := cache.NewFileStore(path); err == nil {
			store = fs
		} else {
			log.Debug("cache store unavailable", "err", err)
		}
	}
	c := cache.New(store, cache.DefaultConfig())

	svc := extract.NewService(extract.Config{
		Cache: c,
		Progress: extract.NewReporter(
			func(p int) { log.Debug("extraction progress", "percent", p) },
			func(on bool) { log.Debug("ocr active", "on", on) },
		),
	})
	return svc, func() {
		svc.Close()
		c.Close()
	}
}

func execute(cmd *cobra.Command, args []string) error {
	svc, closeSvc := newService()
	defer closeSvc()

	src, path, err := resolveSource(cmd.Context(), svc, args)
	if err != nil {
		return err
	}

	if pagesFlag != "" {
		start, end, err := parsePageRange(pagesFlag)
		if err != nil {
			return err
		}
		ranged, err := extract.PageRange(src.Content, start, end)
		if err != nil {
			return err
		}
		src.Content = ranged
	}

	if !useTUI {
		_, err := fmt.Fprintln(os.Stdout, extract.StripMarkers(src.Content))
		return err
	}
	return runTUI(svc, src, path)
}

// resolveSource turns the CLI argument (or stdin) into extracted
// content, dispatching on URL scheme and file extension.
func resolveSource(ctx context.Context, svc *extract.Service, args []string) (extract.ContentSource, string, error) {
	if literalText {
		if len(args) == 0 {
			return extract.ContentSource{}, "", errors.New("--text requires an argument")
		}
		return svc.FromText(args[0]), "", nil
	}

	// Piped input reads as text, same as an explicit "-" argument.
	piped, err := stdinIsPipe()
	if err != nil {
		return extract.ContentSource{}, "", err
	}
	if piped || (len(args) == 1 && args[0] == "-") {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return extract.ContentSource{}, "", fmt.Errorf("unable to read stdin: %w", err)
		}
		return svc.FromText(string(b)), "", nil
	}

	if len(args) == 0 {
		return extract.ContentSource{}, "", errors.New("missing source: pass a file path or URL")
	}
	arg := args[0]

	if u, err := url.ParseRequestURI(arg); err == nil && strings.Contains(arg, "://") {
		if u.Scheme != "http" && u.Scheme != "https" {
			return extract.ContentSource{}, "", fmt.Errorf("%s is not a supported protocol", u.Scheme)
		}
		src, err := svc.FromWebpage(ctx, arg)
		return src, "", err
	}

	path, err := homedir.Expand(arg)
	if err != nil {
		path = arg
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	src, err := extractFile(ctx, svc, path)
	return src, path, err
}

func extractFile(ctx context.Context, svc *extract.Service, path string) (extract.ContentSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		file, err := loadFile(path)
		if err != nil {
			return extract.ContentSource{}, err
		}
		src, err := svc.FromPDF(ctx, file)
		if err != nil {
			return extract.ContentSource{}, errors.New(extract.Message(err))
		}
		return src, nil

	case ".epub":
		return svc.FromEPUB(path)

	case ".md", ".mdown", ".mkdn", ".mkd", ".markdown":
		b, err := os.ReadFile(path)
		if err != nil {
			return extract.ContentSource{}, fmt.Errorf("unable to open file: %w", err)
		}
		src := svc.FromMarkdown(string(b))
		src.Filename = filepath.Base(path)
		src.FileType = "markdown"
		if src.Title == "" {
			src.Title = src.Filename
		}
		return src, nil

	case ".png", ".jpg", ".jpeg", ".tiff", ".bmp":
		file, err := loadFile(path)
		if err != nil {
			return extract.ContentSource{}, err
		}
		return svc.FromImage(ctx, file)

	case ".doc", ".docx", ".odt":
		file, err := loadFile(path)
		if err != nil {
			return extract.ContentSource{}, err
		}
		return svc.FromWord(ctx, file)

	case ".xls", ".xlsx", ".ods", ".csv":
		file, err := loadFile(path)
		if err != nil {
			return extract.ContentSource{}, err
		}
		return svc.FromSpreadsheet(ctx, file)

	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return extract.ContentSource{}, fmt.Errorf("unable to open file: %w", err)
		}
		src := svc.FromText(string(b))
		src.Filename = filepath.Base(path)
		return src, nil
	}
}

// loadFile stats first so oversized files are rejected on size alone,
// without reading their bytes.
func loadFile(path string) (extract.FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return extract.FileInfo{}, fmt.Errorf("unable to stat file: %w", err)
	}
	file := extract.FileInfo{Name: filepath.Base(path), Size: st.Size()}
	if st.Size() <= 50<<20 {
		if file.Data, err = os.ReadFile(path); err != nil {
			return extract.FileInfo{}, fmt.Errorf("unable to read file: %w", err)
		}
	}
	return file, nil
}

// parsePageRange parses "3" or "2-7".
func parsePageRange(s string) (start, end int, err error) {
	parts := strings.SplitN(s, "-", 2)
	if start, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
		return 0, 0, fmt.Errorf("invalid page range %q", s)
	}
	end = start
	if len(parts) == 2 {
		if end, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
			return 0, 0, fmt.Errorf("invalid page range %q", s)
		}
	}
	if start < 1 || end < start {
		return 0, 0, fmt.Errorf("invalid page range %q", s)
	}
	return start, end, nil
}

func runTUI(svc *extract.Service, src extract.ContentSource, path string) error {
	cfg, err := env.ParseAs[tui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}
	if cfg.GlamourStyle == "" {
		cfg.GlamourStyle = "auto"
	}
	cfg.GlamourMaxWidth = width

	gen := audio.NewPiperGenerator(piperBinary, piperModel)
	if !gen.Available() {
		return fmt.Errorf("the %s binary is not available; install piper or pipe output with --tui=false", keyword("piper"))
	}
	player, err := audio.NewPlayer(gen, audio.Config{SampleRate: piperSampleRate, Channels: 1})
	if err != nil {
		return fmt.Errorf("unable to open audio output: %w", err)
	}

	engine := speech.NewEngine(player, speech.DefaultConfig())
	update := speech.SettingsUpdate{Rate: &rateFlag, Volume: &volumeFlag}
	if voiceFlag != "" {
		update.Voice = &voiceFlag
	}
	if err := engine.UpdateSettings(update); err != nil {
		return err
	}

	var reload tui.ReloadFunc
	if path != "" {
		reload = func() (extract.ContentSource, error) {
			return extractFile(context.Background(), svc, path)
		}
	}

	if _, err := tui.NewProgram(cfg, engine, src, path, reload).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().BoolVarP(&useTUI, "tui", "t", false, "read aloud in the interactive reader (default when stdout is a terminal)")
	rootCmd.Flags().BoolVar(&literalText, "text", false, "treat the argument as literal text to read")
	rootCmd.Flags().StringVarP(&pagesFlag, "pages", "p", "", "page range to read, e.g. 3 or 2-7")
	rootCmd.Flags().Float64VarP(&rateFlag, "rate", "r", 1.0, "speech rate (0.1-3.0)")
	rootCmd.Flags().Float64Var(&volumeFlag, "volume", 1.0, "playback volume (0.0-1.0)")
	rootCmd.Flags().StringVar(&voiceFlag, "voice", "", "voice name or id (fuzzy matched)")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap the preview at width (0 to auto-detect)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&piperBinary, "piper-binary", "piper", "path to the piper binary")
	rootCmd.Flags().StringVar(&piperModel, "piper-model", "", "path to the piper voice model (.onnx)")

	_ = viper.BindPFlag("tui", rootCmd.Flags().Lookup("tui"))
	_ = viper.BindPFlag("rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("volume", rootCmd.Flags().Lookup("volume"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
	_ = viper.BindPFlag("piper.binary", rootCmd.Flags().Lookup("piper-binary"))
	_ = viper.BindPFlag("piper.model", rootCmd.Flags().Lookup("piper-model"))

	viper.SetDefault("rate", 1.0)
	viper.SetDefault("volume", 1.0)
	viper.SetDefault("width", 0)
	viper.SetDefault("piper.binary", "piper")
	viper.SetDefault("piper.model", "")

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "voxread")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find the configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "voxread")}, dirs...)
	}

	if c := os.Getenv("VOXREAD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("voxread")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("voxread")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "voxread.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
