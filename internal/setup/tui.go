package setup

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/vadiminshakov/simex/config"
	"github.com/vadiminshakov/simex/internal/domain"
	"github.com/vadiminshakov/simex/internal/storage/session"
)

// ConfigFile is where the wizard writes the generated config.
const ConfigFile = "config.gen.yaml"

const (
	authWallet = "wallet"
	authManual = "manual"
)

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
	baseURL    string
	pair       string
	interval   string
	webAddr    string
	auth       string
	address    string
	apiKey     string
	sessionDir string
}

// RunTUI launches the terminal configuration wizard and returns the path of the written config.
func RunTUI() (string, error) {
	a := answers{
		baseURL:    config.DefaultBaseURL,
		pair:       config.DefaultPair,
		interval:   config.DefaultDepthPollInterval.String(),
		webAddr:    config.DefaultWebAddr,
		auth:       authWallet,
		sessionDir: config.DefaultSessionDir,
	}
	var confirm bool

	screen("STEP 1: EXCHANGE")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Point simex at your exchange API.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API base URL").
				Value(&a.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Default pair").
				Description("BASE-QUOTE (e.g. NTN-USDC)").
				Value(&a.pair).
				Validate(validatePair),
		),
	).Run()
	if err != nil {
		return "", err
	}

	screen("STEP 2: POLLING")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Depth poll interval").
				Description("e.g. 5s, 1m").
				Value(&a.interval).
				Validate(validateInterval),
			huh.NewInput().
				Title("Web UI address").
				Value(&a.webAddr).
				Validate(validateNotEmpty),
		),
	).Run()
	if err != nil {
		return "", err
	}

	screen("STEP 3: AUTHENTICATION")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How will you sign in?").
				Options(
					huh.NewOption(fmt.Sprintf("Wallet key from %s", config.PrivateKeyEnv), authWallet),
					huh.NewOption("Address and API key", authManual),
				).
				Value(&a.auth),
		),
	).Run()
	if err != nil {
		return "", err
	}

	if a.auth == authManual {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Account address").
					Value(&a.address).
					Validate(validateNotEmpty),
				huh.NewInput().
					Title("API key").
					EchoMode(huh.EchoModePassword).
					Value(&a.apiKey).
					Validate(validateNotEmpty),
			),
		).Run()
		if err != nil {
			return "", err
		}
	}

	screen("FINAL STEP: REVIEW")
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(a.summary()))

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
		return "", err
	}

	if !confirm {
		return "", fmt.Errorf("setup cancelled by user")
	}

	if err := a.save(ConfigFile); err != nil {
		return "", err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting simex...", ConfigFile)))
	time.Sleep(1500 * time.Millisecond)
	return ConfigFile, nil
}

func screen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SIMEX CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(step))
}

func (a answers) summary() string {
	auth := "wallet (" + config.PrivateKeyEnv + ")"
	if a.auth == authManual {
		auth = "manual (" + a.address + ")"
	}
	return fmt.Sprintf(
		"API: %s\nPair: %s\nDepth interval: %s\nWeb UI: %s\nAuth: %s\n",
		a.baseURL, a.pair, a.interval, a.webAddr, auth,
	)
}

// save writes the config and, for manual sign in, the session record.
func (a answers) save(path string) error {
	interval, err := time.ParseDuration(a.interval)
	if err != nil {
		return fmt.Errorf("invalid poll interval: %w", err)
	}

	tmp := config.ConfigTmp{
		BaseURL:           strings.TrimSpace(a.baseURL),
		DefaultPair:       strings.TrimSpace(a.pair),
		DepthPollInterval: interval,
		WebAddr:           strings.TrimSpace(a.webAddr),
		SessionDir:        a.sessionDir,
	}
	if err := config.Save(path, tmp); err != nil {
		return err
	}

	if a.auth != authManual {
		return nil
	}

	store, err := session.NewWALStore(a.sessionDir)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	return store.Save(domain.Credentials{
		Address: strings.TrimSpace(a.address),
		APIKey:  strings.TrimSpace(a.apiKey),
	})
}

func validateURL(s string) error {
	if _, err := url.ParseRequestURI(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("must be a valid URL")
	}
	return nil
}

func validatePair(s string) error {
	if _, err := domain.ParsePair(s); err != nil {
		return fmt.Errorf("must look like BASE-QUOTE")
	}
	return nil
}

func validateInterval(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a duration like 5s")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateNotEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}
