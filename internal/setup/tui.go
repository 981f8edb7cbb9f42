package setup

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/vadiminshakov/marginscope/config"
	"github.com/vadiminshakov/marginscope/internal/domain"
)

// GeneratedConfigPath is where the wizard saves its result.
const GeneratedConfigPath = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers collected by the wizard.
type answers struct {
	protocol     string
	base         string
	snapshot     string
	listenAddr   string
	reload       string
	tlsDomains   string
	certCacheDir string
}

func (a answers) configTmp() (config.ConfigTmp, error) {
	reload, err := time.ParseDuration(strings.TrimSpace(a.reload))
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("invalid reload interval %q: %w", a.reload, err)
	}
	tmp := config.ConfigTmp{
		ListenAddr:     strings.TrimSpace(a.listenAddr),
		Snapshot:       strings.TrimSpace(a.snapshot),
		Protocol:       a.protocol,
		BaseCurrency:   string(domain.NormalizeAssetID(a.base)),
		ReloadInterval: reload,
	}
	for _, d := range strings.Split(a.tlsDomains, ",") {
		if d = strings.TrimSpace(d); d != "" {
			tmp.TLSDomains = append(tmp.TLSDomains, d)
		}
	}
	if len(tmp.TLSDomains) > 0 {
		tmp.CertCache = strings.TrimSpace(a.certCacheDir)
	}
	return tmp, nil
}

func clearScreen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("MARGINSCOPE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes GeneratedConfigPath.
func RunTUI() error {
	a := answers{
		base:         string(domain.DefaultBaseCurrency),
		snapshot:     "market.yaml",
		listenAddr:   ":8080",
		reload:       "15s",
		certCacheDir: "cert-cache",
	}
	var confirm bool

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("MARGINSCOPE CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Preview how every trade moves your health factor.\n"))

	fmt.Println(stepStyle.Render("STEP 1: MARKET"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Lending protocol").
				Options(
					huh.NewOption("AAVE", string(domain.ProtocolAave)),
					huh.NewOption("Compound V2", string(domain.ProtocolCompound)),
					huh.NewOption("Compound V3 (Comet)", string(domain.ProtocolCompoundV3)),
				).
				Value(&a.protocol),
			huh.NewInput().
				Title("Base currency").
				Description("Settlement asset of single-base markets (e.g. USDC)").
				Value(&a.base).
				Validate(validateSymbol),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen("STEP 2: DATA")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Market snapshot").
				Description("Path to the yaml written by your market fetcher").
				Value(&a.snapshot).
				Validate(validateNotEmpty),
			huh.NewInput().
				Title("Reload interval").
				Description("Duration string (e.g. 5s, 1m)").
				Value(&a.reload).
				Validate(validateInterval),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen("STEP 3: API")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&a.listenAddr).
				Validate(validateNotEmpty),
			huh.NewInput().
				Title("TLS domains").
				Description("Comma separated, leave empty to serve plain HTTP").
				Value(&a.tlsDomains),
			huh.NewInput().
				Title("Certificate cache dir").
				Value(&a.certCacheDir),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen("FINAL CONFIRMATION")
	tmp, err := a.configTmp()
	if err != nil {
		return err
	}
	summary := fmt.Sprintf(
		"Protocol: %s\nBase: %s\nSnapshot: %s\nReload: %s\nListen: %s\n",
		tmp.Protocol, tmp.BaseCurrency, tmp.Snapshot, tmp.ReloadInterval, tmp.ListenAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := config.Write(GeneratedConfigPath, tmp); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting api...", GeneratedConfigPath)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateSymbol(s string) error {
	if domain.NormalizeAssetID(s) == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if strings.ContainsAny(strings.TrimSpace(s), " _/") {
		return fmt.Errorf("invalid symbol: use the ticker only (e.g. USDC)")
	}
	return nil
}

func validateNotEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value cannot be empty")
	}
	return nil
}

func validateInterval(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
