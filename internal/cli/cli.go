package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Serdar715/xssdetective/internal/banner"
	"github.com/Serdar715/xssdetective/internal/config"
	"github.com/Serdar715/xssdetective/internal/logger"
	"github.com/Serdar715/xssdetective/internal/report"
	"github.com/Serdar715/xssdetective/internal/surface"
)

// flagValues holds every flag before it is merged into a ScanConfig.
type flagValues struct {
	configFile string

	// Engine options
	engine      string
	visible     bool
	browserPath string
	timeout     time.Duration
	maxInFlight int
	maxFailures int

	// Proxy and authentication options
	proxyURL    string
	cookies     string
	authHeader  string
	userAgent   string
	headersFile string
	cookieFile  string

	// Selection options
	fields    []string
	allInputs bool
	tests     []int
	allTests  bool

	// Catalog options
	catalogs  []string
	noBuiltin bool

	// Output options
	outputFile   string
	outputFormat string
	webhookURL   string
	verbose      bool
	silent       bool
	showPanel    bool

	// tests subcommand
	detail string
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&flagValues{})
}

func newRootCmd(fv *flagValues) *cobra.Command {
	defaults := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:     "xssdetective [host_url]",
		Short:   "🕵️ Form XSS tester v" + banner.Version,
		Version: banner.Version,
		Long: banner.GetBanner() + `
xssdetective - Form XSS Tester

Opens a host page, lets you pick form fields and attack vectors, then submits
every selected vector into every selected field at once. Each submission goes
to its own hidden, uniquely named frame so the host page never navigates.
A field is PASSED when every test's check held on its response, FAILED as soon
as one did not.
`,
		Example: `  # List the fields of a page
  xssdetective fields "http://127.0.0.1:8080/"

  # List the catalog with vectors instead of descriptions
  xssdetective tests --detail vector

  # Tests 1 and 3 on the field named q
  xssdetective "http://127.0.0.1:8080/" --field q --test 1 --test 3

  # Everything on everything, through Burp, report as HTML
  xssdetective "http://127.0.0.1:8080/" --all-inputs --all-tests \
    --proxy http://127.0.0.1:8080 -o report.html --format html

  # Headless browser engine, extra YAML catalog
  xssdetective "http://127.0.0.1:8080/" --engine rod --catalog tests.yaml --field "1;0" --all-tests`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFiles(fv)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, fv, args)
			if err != nil {
				return err
			}
			if cfg.HostURL == "" {
				return fmt.Errorf("a host URL must be provided (argument or host_url in --config)")
			}
			return runInject(cmd, cfg, fv.webhookURL)
		},
	}

	fieldsCmd := &cobra.Command{
		Use:   "fields <host_url>",
		Short: "List the forms and fields of a host page",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFiles(fv)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, fv, args)
			if err != nil {
				return err
			}
			if cfg.HostURL == "" {
				return fmt.Errorf("a host URL must be provided")
			}
			return runFields(cmd, cfg)
		},
	}
	fieldsCmd.Flags().StringVar(&fv.configFile, "config", "", "YAML configuration file")

	testsCmd := &cobra.Command{
		Use:   "tests",
		Short: "List the test catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fv.detail != "description" && fv.detail != "vector" {
				return fmt.Errorf("invalid detail: %s (description or vector)", fv.detail)
			}
			cfg, err := buildConfig(cmd, fv, nil)
			if err != nil {
				return err
			}
			log := logger.NewWithOutput(cmd.ErrOrStderr(), cfg.Verbose, cfg.Silent)
			reg, err := buildRegistry(cfg, log)
			if err != nil {
				return err
			}
			printTests(cmd.OutOrStdout(), reg.All(), fv.detail)
			return nil
		},
	}
	testsCmd.Flags().StringVar(&fv.detail, "detail", "description", "Column shown next to each test (description, vector)")

	// Engine flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&fv.engine, "engine", defaults.Engine, "Submission engine (http, rod)")
	pf.BoolVarP(&fv.visible, "visible", "v", false, "Run the browser in visible mode (rod engine)")
	pf.StringVar(&fv.browserPath, "browser", "", "Chromium binary for the rod engine")
	pf.DurationVar(&fv.timeout, "timeout", defaults.Timeout, "How long a frame may stay unready")

	// Proxy and authentication flags
	pf.StringVar(&fv.proxyURL, "proxy", "", "Proxy URL (e.g., http://127.0.0.1:8080 for Burp Suite)")
	pf.StringVarP(&fv.cookies, "cookie", "c", "", "Cookie header value (e.g., \"session=abc123; token=xyz\")")
	pf.StringVar(&fv.authHeader, "auth", "", "Authorization header value (e.g., \"Bearer eyJhbGc...\")")
	pf.StringVar(&fv.userAgent, "user-agent", defaults.UserAgent, "User-Agent header")
	pf.StringVar(&fv.headersFile, "headers-file", "", "File containing custom headers (key: value format)")
	pf.StringVar(&fv.cookieFile, "cookie-file", "", "File containing cookies (name=value format, one per line)")

	// Catalog flags
	pf.StringArrayVar(&fv.catalogs, "catalog", nil, "YAML test catalog to register after the builtin tests. Can be used multiple times.")
	pf.BoolVar(&fv.noBuiltin, "no-builtin", false, "Do not register the builtin tests")

	// Output flags
	pf.BoolVar(&fv.verbose, "verbose", false, "Enable verbose output")
	pf.BoolVar(&fv.silent, "silent", false, "Silence all output except results")

	// Selection flags
	f := rootCmd.Flags()
	f.StringVar(&fv.configFile, "config", "", "YAML configuration file")
	f.StringArrayVar(&fv.fields, "field", nil, "Field to test, as \"form;element\" or name. Can be used multiple times.")
	f.BoolVar(&fv.allInputs, "all-inputs", false, "Test every input of every form, hidden ones included")
	f.IntSliceVar(&fv.tests, "test", nil, "Test index to run (see 'xssdetective tests'). Can be used multiple times.")
	f.BoolVar(&fv.allTests, "all-tests", false, "Run every registered test")
	f.IntVar(&fv.maxInFlight, "max-inflight", defaults.MaxInFlight, "Maximum frames in flight (0 = unbounded)")
	f.IntVar(&fv.maxFailures, "max-failures", defaults.MaxFailures, "Engine failures in a row before submissions fail fast (0 = never)")

	f.StringVarP(&fv.outputFile, "output", "o", "", "Output file for report")
	f.StringVar(&fv.outputFormat, "format", defaults.OutputFormat, "Output format (json, html, md)")
	f.StringVar(&fv.webhookURL, "webhook", "", "Webhook URL notified when checks pass (Discord/Slack)")
	f.BoolVar(&fv.showPanel, "show-panel", defaults.ShowPanel, "Print the result log while the run progresses")

	rootCmd.AddCommand(fieldsCmd, testsCmd)
	return rootCmd
}

// validateFiles checks referenced files before anything is opened.
func validateFiles(fv *flagValues) error {
	for _, path := range []string{fv.configFile, fv.headersFile, fv.cookieFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
	}
	for _, path := range fv.catalogs {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("catalog file not found: %s", path)
		}
	}
	return nil
}

// buildConfig loads --config when given and lays every explicitly set flag
// over it.
func buildConfig(cmd *cobra.Command, fv *flagValues, args []string) (*config.ScanConfig, error) {
	cfg := config.DefaultConfig()
	if fv.configFile != "" {
		loaded, err := config.Load(fv.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if len(args) > 0 {
		cfg.HostURL = args[0]
	}
	if changed("engine") {
		cfg.Engine = fv.engine
	}
	if changed("visible") {
		cfg.Visible = fv.visible
	}
	if changed("browser") {
		cfg.BrowserPath = fv.browserPath
	}
	if changed("timeout") {
		cfg.Timeout = fv.timeout
	}
	if changed("max-inflight") {
		cfg.MaxInFlight = fv.maxInFlight
	}
	if changed("max-failures") {
		cfg.MaxFailures = fv.maxFailures
	}
	if changed("proxy") {
		cfg.ProxyURL = fv.proxyURL
	}
	if changed("cookie") {
		cfg.Cookies = fv.cookies
	}
	if changed("auth") {
		cfg.AuthHeader = fv.authHeader
	}
	if changed("user-agent") {
		cfg.UserAgent = fv.userAgent
	}
	if changed("field") {
		cfg.Fields = fv.fields
	}
	if changed("all-inputs") {
		cfg.AllInputs = fv.allInputs
	}
	if changed("test") {
		cfg.Tests = fv.tests
	}
	if changed("all-tests") {
		cfg.AllTests = fv.allTests
	}
	if changed("catalog") {
		cfg.Catalogs = fv.catalogs
	}
	if changed("no-builtin") {
		cfg.NoBuiltin = fv.noBuiltin
	}
	if changed("output") {
		cfg.OutputFile = fv.outputFile
	}
	if changed("format") {
		cfg.OutputFormat = fv.outputFormat
	}
	if changed("verbose") {
		cfg.Verbose = fv.verbose
	}
	if changed("silent") {
		cfg.Silent = fv.silent
	}
	if changed("show-panel") {
		cfg.ShowPanel = fv.showPanel
	}

	if fv.headersFile != "" {
		headers, err := loadHeadersFromFile(fv.headersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load headers file: %w", err)
		}
		for k, v := range headers {
			cfg.Headers[k] = v
		}
	}
	if fv.cookieFile != "" {
		cookieValue, err := loadCookiesFromFile(fv.cookieFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load cookie file: %w", err)
		}
		cfg.Cookies = mergeCookies(cfg.Cookies, cookieValue)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// signalContext cancels on Ctrl+C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runInject(cmd *cobra.Command, cfg *config.ScanConfig, webhookURL string) error {
	out := cmd.OutOrStdout()
	log := logger.NewWithOutput(cmd.ErrOrStderr(), cfg.Verbose, cfg.Silent)

	if !cfg.Silent {
		fmt.Fprintln(out, banner.GetBanner())
		printConfigSummary(out, cfg)
	}

	engine, err := surface.New(cfg.Engine, cfg.SurfaceOptions())
	if err != nil {
		return fmt.Errorf("failed to initialize %s engine: %w", cfg.Engine, err)
	}
	defer engine.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	if !cfg.Silent {
		cyan.Fprintf(out, "\n[*] Opening host page: %s\n", cfg.HostURL)
	}

	sess := &injectSession{cfg: cfg, engine: engine, out: out, log: log}
	res, err := sess.run(ctx)
	if err != nil {
		if isUserError(err) {
			return nil
		}
		return err
	}

	if !res.Complete {
		yellow.Fprintln(out, "\n[!] Run interrupted by user (Ctrl+C)")
	}

	findings := res.Findings()
	if len(findings) > 0 {
		red.Fprintf(out, "\n[!] %d checks passed!\n", len(findings))
		printFindings(out, findings)
	} else if res.Complete {
		green.Fprintln(out, "\n[✓] No check passed.")
	}
	printSummary(out, res)

	if cfg.OutputFile != "" {
		if err := report.New(cfg.OutputFormat).Generate(res, cfg.OutputFile); err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}
		green.Fprintf(out, "\n[✓] Report saved to: %s\n", cfg.OutputFile)
	}

	if webhookURL != "" {
		// ctx may already be cancelled after an interrupt.
		hookCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		if err := report.SendWebhook(hookCtx, nil, webhookURL, res); err != nil {
			yellow.Fprintf(out, "[!] Webhook failed: %v\n", err)
		} else if len(findings) > 0 {
			green.Fprintln(out, "[+] Webhook notification sent!")
		}
	}
	return nil
}

func runFields(cmd *cobra.Command, cfg *config.ScanConfig) error {
	engine, err := surface.New(cfg.Engine, cfg.SurfaceOptions())
	if err != nil {
		return fmt.Errorf("failed to initialize %s engine: %w", cfg.Engine, err)
	}
	defer engine.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	p, err := openPage(ctx, engine, cfg.HostURL)
	if err != nil {
		return fmt.Errorf("failed to open host page: %w", err)
	}
	printFields(cmd.OutOrStdout(), p)
	return nil
}

func init() {
	// Disable color if not a terminal
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}
