package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/htmledit/internal/address"
	"github.com/hyperifyio/htmledit/internal/editor"
	"github.com/hyperifyio/htmledit/internal/images"
	"github.com/hyperifyio/htmledit/internal/textnode"
)

const usage = `usage: htmledit [global flags] <command> [flags]

commands:
  scan           list text fields and images
  apply          apply an edit set file
  set            stage one edit in the session
  save           apply staged edits and write the document
  replace-image  replace an image with a PNG or JPEG file
  inspect        write an inspection report (HTML, optional PDF)
  suggest        ask the model for a rewrite of one field
  models         list models offered by the LLM server
  version        print build information
`

// errUsage marks command line mistakes.
var errUsage = errors.New("usage")

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			log.Error().Err(err).Msg("htmledit failed")
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps addressing, format and usage errors to 2 and anything else
// to 1.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage),
		errors.Is(err, address.ErrMalformed),
		errors.Is(err, images.ErrOutOfRange),
		errors.Is(err, images.ErrUnknownLocatorKind),
		errors.Is(err, images.ErrUnsupportedMIME),
		errors.Is(err, images.ErrInvalidDataURL),
		errors.Is(err, editor.ErrUnknownField),
		errors.Is(err, editor.ErrUnknownImage):
		return 2
	}
	return 1
}

// listFlag is a comma separated string list.
type listFlag struct{ dst *[]string }

func (l listFlag) String() string {
	if l.dst == nil {
		return ""
	}
	return strings.Join(*l.dst, ",")
}

func (l listFlag) Set(s string) error {
	*l.dst = nil
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*l.dst = append(*l.dst, p)
		}
	}
	return nil
}

// sizeFlag accepts human readable byte sizes such as "64MB".
type sizeFlag struct{ dst *int64 }

func (f sizeFlag) String() string {
	if f.dst == nil || *f.dst == 0 {
		return ""
	}
	return strconv.FormatInt(*f.dst, 10)
}

func (f sizeFlag) Set(s string) error {
	n, ok := editor.ParseSize(s)
	if !ok {
		return fmt.Errorf("invalid size %q", s)
	}
	*f.dst = n
	return nil
}

// loadConfig parses the global flags and layers config sources. Precedence:
// explicit flags, HTMLEDIT_* env, config file, flag defaults.
func loadConfig(args []string, stderr io.Writer) (editor.Config, []string, error) {
	cfg := editor.Config{}
	var (
		configPath string
		envFiles   string
	)
	fs := flag.NewFlagSet("htmledit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fmt.Fprintln(stderr, "\nglobal flags:")
		fs.PrintDefaults()
	}
	fs.StringVar(&configPath, "config", os.Getenv("HTMLEDIT_CONFIG"), "Path to YAML or JSON config file")
	fs.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files to load")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	fs.StringVar(&cfg.WorkDir, "workdir", editor.WorkDirDefault, "Directory for session state")
	fs.StringVar(&cfg.CacheDir, "cache.dir", editor.CacheDirDefault, "Cache directory for suggestions and thumbnails")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", 0, "Max age of cache entries before purge; 0 disables")
	fs.IntVar(&cfg.CacheMaxEntries, "cache.maxEntries", 0, "Max entries per cache area; 0 disables")
	fs.Var(sizeFlag{&cfg.CacheMaxBytes}, "cache.maxBytes", "Max bytes per cache area, e.g. 64MB; empty disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", false, "Clear the cache directory first")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.StringVar(&cfg.StatusTag, "status.tag", "", "Tag of the status container (default p)")
	fs.StringVar(&cfg.StatusClass, "status.class", "", "Class of the status container (default status)")
	fs.StringVar(&cfg.StatusVariable, "status.var", "", "Template variable of the status chain (default status)")
	fs.Var(listFlag{&cfg.Statuses}, "status.values", "Comma-separated status vocabulary (default Platinum,Gold,Silver,Bronze)")
	fs.IntVar(&cfg.ThumbWidth, "thumb.width", 0, "Preview width in pixels (default 264)")
	fs.IntVar(&cfg.ThumbHeight, "thumb.height", 0, "Preview height in pixels (default 200)")
	fs.StringVar(&cfg.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	fs.StringVar(&cfg.LLMModel, "llm.model", editor.LLMModelDefault, "Model name")
	fs.StringVar(&cfg.LLMAPIKey, "llm.key", "", "API key for the model server")
	fs.StringVar(&cfg.Language, "lang", "", "Language for suggestions, e.g. 'en' or 'fi'")
	if err := fs.Parse(args); err != nil {
		return cfg, nil, err
	}

	if err := editor.LoadEnvFiles(strings.Split(envFiles, ",")...); err != nil {
		return cfg, nil, fmt.Errorf("load env: %w", err)
	}

	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })

	if strings.TrimSpace(configPath) != "" {
		fc, err := editor.LoadConfigFile(configPath)
		if err != nil {
			return cfg, nil, fmt.Errorf("load config: %w", err)
		}
		editor.ApplyFileConfig(&cfg, fc)
	}
	editor.ApplyEnvOverrides(&cfg)
	for name, v := range explicit {
		_ = fs.Set(name, v)
	}
	editor.ApplyEnvToConfig(&cfg)

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return cfg, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, rest, err := loadConfig(args, os.Stderr)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "scan":
		return cmdScan(cfg, cmdArgs, stdout)
	case "apply":
		return cmdApply(cfg, cmdArgs, stdout)
	case "set":
		return cmdSet(cfg, cmdArgs, stdout)
	case "save":
		return cmdSave(cfg, cmdArgs, stdout)
	case "replace-image":
		return cmdReplaceImage(cfg, cmdArgs, stdout)
	case "inspect":
		return cmdInspect(ctx, cfg, cmdArgs, stdout)
	case "suggest":
		return cmdSuggest(ctx, cfg, cmdArgs, stdout)
	case "models":
		return cmdModels(ctx, cfg, cmdArgs, stdout)
	case "version":
		v, commit, date := editor.Version()
		fmt.Fprintf(stdout, "htmledit %s (%s, %s)\n", v, commit, date)
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

// command is the flag set shared by subcommands: -in plus command flags.
type command struct {
	fs *flag.FlagSet
	in string
}

func newCommand(name string) *command {
	c := &command{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	c.fs.SetOutput(os.Stderr)
	c.fs.StringVar(&c.in, "in", "", "HTML document")
	return c
}

// parse accepts the document as -in or as the first positional argument.
func (c *command) parse(args []string) error {
	if err := c.fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if c.in == "" && c.fs.NArg() > 0 {
		c.in = c.fs.Arg(0)
	}
	if c.in == "" {
		return fmt.Errorf("%w: %s needs -in", errUsage, c.fs.Name())
	}
	return nil
}

func (c *command) open(cfg editor.Config) (*editor.Editor, error) {
	ed, err := editor.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := ed.Open(c.in); err != nil {
		return nil, err
	}
	return ed, nil
}

type refView struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
	Where   string `json:"where"`
	Text    string `json:"text"`
}

type imageView struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	MIME    string `json:"mime"`
	Format  string `json:"format"`
	Size    string `json:"size"`
	Locator string `json:"locator"`
	Hint    string `json:"hint"`
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func cmdScan(cfg editor.Config, args []string, stdout io.Writer) error {
	c := newCommand("scan")
	asJSON := c.fs.Bool("json", false, "Print JSON instead of a table")
	if err := c.parse(args); err != nil {
		return err
	}
	ed, err := c.open(cfg)
	if err != nil {
		return err
	}
	refs, err := ed.Texts()
	if err != nil {
		return err
	}
	entries, err := ed.Images()
	if err != nil {
		return err
	}
	out := struct {
		Texts  []refView   `json:"texts"`
		Images []imageView `json:"images"`
	}{Texts: []refView{}, Images: []imageView{}}
	for _, r := range refs {
		out.Texts = append(out.Texts, refView{Address: r.Address, Kind: string(r.Kind), Where: r.Where(), Text: r.Display})
	}
	for _, e := range entries {
		out.Images = append(out.Images, imageView{ID: e.ID, Source: string(e.Source), MIME: e.MIME, Format: e.Format, Size: e.Size(), Locator: e.Locator.String(), Hint: shorten(e.Hint, 80)})
	}
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tWHERE\tTEXT")
	for _, r := range out.Texts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Address, r.Where, r.Text)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ID\tSOURCE\tMIME\tSIZE\tLOCATOR\tHINT")
	for _, e := range out.Images {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Source, e.MIME, e.Size, e.Locator, e.Hint)
	}
	return tw.Flush()
}

func cmdApply(cfg editor.Config, args []string, stdout io.Writer) error {
	c := newCommand("apply")
	editsPath := c.fs.String("edits", "", "YAML or JSON file mapping addresses to text")
	outPath := c.fs.String("out", "", "Write the result here instead of stdout")
	if err := c.parse(args); err != nil {
		return err
	}
	if *editsPath == "" {
		return fmt.Errorf("%w: apply needs -edits", errUsage)
	}
	edits, err := editor.LoadEdits(*editsPath)
	if err != nil {
		return err
	}
	ed, err := c.open(cfg)
	if err != nil {
		return err
	}
	doc, err := ed.Apply(edits)
	if err != nil {
		return err
	}
	if *outPath == "" {
		_, err = io.WriteString(stdout, doc)
		return err
	}
	if err := os.WriteFile(*outPath, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Str("path", *outPath).Int("edits", len(edits)).Msg("edits applied")
	return nil
}

func cmdSet(cfg editor.Config, args []string, stdout io.Writer) error {
	c := newCommand("set")
	key := c.fs.String("key", "", "Field address, e.g. TEXT|p|lead|1 or STATUS|Gold")
	text := c.fs.String("text", "", "Replacement text")
	if err := c.parse(args); err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("%w: set needs -key", errUsage)
	}
	ed, err := c.open(cfg)
	if err != nil {
		return err
	}
	if err := ed.Stage(textnode.EditSet{*key: *text}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "staged %s (%d pending)\n", *key, len(ed.Pending()))
	return nil
}

func cmdSave(cfg editor.Config, args []string, stdout io.Writer) error {
	c := newCommand("save")
	outPath := c.fs.String("out", "", "Write to this path instead of the input file")
	if err := c.parse(args); err != nil {
		return err
	}
	ed, err := c.open(cfg)
	if err != nil {
		return err
	}
	n := len(ed.Pending())
	p, err := ed.Save(*outPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "saved %s (%d edits)\n", p, n)
	return nil
}

func cmdReplaceImage(cfg editor.Config, args []string, stdout io.Writer) error {
	c := newCommand("replace-image")
	id := c.fs.String("id", "", "Image id from scan, e.g. IMG002")
	imagePath := c.fs.String("image", "", "PNG or JPEG replacement")
	outPath := c.fs.String("out", "", "Write to this path instead of the input file")
	if err := c.parse(args); err != nil {
		return err
	}
	if *id == "" || *imagePath == "" {
		return fmt.Errorf("%w: replace-image needs -id and -image", errUsage)
	}
	ed, err := c.open(cfg)
	if err != nil {
		return err
	}
	entry, err := ed.ReplaceImage(*id, *imagePath, *outPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "replaced %s at %s\n", entry.ID, entry.Locator)
	return nil
}

func cmdInspect(ctx context.Context, cfg editor.Config, args []string, stdout io.Writer) error {
	c := newCommand("inspect")
	outPath := c.fs.String("out", "", "HTML report path (default <input>_report.html)")
	pdfPath := c.fs.String("pdf", "", "Also write a PDF report here")
	imagesDir := c.fs.String("images", "", "Extract embedded images into this directory")
	title := c.fs.String("title", "", "Report title")
	if err := c.parse(args); err != nil {
		return err
	}
	if *outPath == "" {
		*outPath = strings.TrimSuffix(c.in, filepath.Ext(c.in)) + "_report.html"
	}
	ed, err := c.open(cfg)
	if err != nil {
		return err
	}
	r, err := ed.Inspect(*title)
	if err != nil {
		return err
	}
	if *imagesDir != "" {
		n, err := r.ExtractImages(*imagesDir)
		if err != nil {
			return err
		}
		log.Info().Int("count", n).Str("dir", *imagesDir).Msg("images extracted")
	}
	if err := writeWith(*outPath, func(w io.Writer) error { return r.WriteHTML(ctx, w) }); err != nil {
		return err
	}
	if *pdfPath != "" {
		if err := writeWith(*pdfPath, func(w io.Writer) error { return r.WritePDF(ctx, w) }); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "report: %s\nfields: %d\nhard texts: %d\nimages: %d\n", *outPath, len(r.Fields), len(r.HardTexts), len(r.Images))
	return nil
}

func writeWith(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cmdSuggest(ctx context.Context, cfg editor.Config, args []string, stdout io.Writer) error {
	c := newCommand("suggest")
	key := c.fs.String("key", "", "Field address to rewrite")
	instruction := c.fs.String("instruction", "", "What to change")
	stage := c.fs.Bool("stage", false, "Stage the suggestion as an edit")
	if err := c.parse(args); err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("%w: suggest needs -key", errUsage)
	}
	ed, err := c.open(cfg)
	if err != nil {
		return err
	}
	text, err := ed.Suggest(ctx, *key, *instruction)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, text)
	if *stage {
		return ed.Stage(textnode.EditSet{*key: text})
	}
	return nil
}

func cmdModels(ctx context.Context, cfg editor.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	ed, err := editor.New(cfg)
	if err != nil {
		return err
	}
	ids, err := ed.Models(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(stdout, id)
	}
	return nil
}
