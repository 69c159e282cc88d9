// Command crowdctl drives the CrowdShield services from a terminal without
// starting the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/analysis/risk"
	"github.com/crowdshield/dashboard/backend/internal/auth"
	"github.com/crowdshield/dashboard/backend/internal/config"
	"github.com/crowdshield/dashboard/backend/internal/logging"
	advisorymodel "github.com/crowdshield/dashboard/backend/internal/model/advisory"
	"github.com/crowdshield/dashboard/backend/internal/model/route"
	statemodel "github.com/crowdshield/dashboard/backend/internal/model/state"
	"github.com/crowdshield/dashboard/backend/internal/service/advisory"
	"github.com/crowdshield/dashboard/backend/internal/service/ai"
	"github.com/crowdshield/dashboard/backend/internal/service/alert"
	"github.com/crowdshield/dashboard/backend/internal/service/data"
	"github.com/crowdshield/dashboard/backend/internal/service/routing"
	"github.com/crowdshield/dashboard/backend/internal/service/situation"
	"github.com/crowdshield/dashboard/backend/internal/service/speech"
)

var (
	app     = kingpin.New("crowdctl", "CrowdShield operator console")
	timeout = app.Flag("timeout", "Deadline for one command").Default("60s").Duration()
	verbose = app.Flag("verbose", "Log at debug level to stderr").Short('v').Bool()

	statesCmd = app.Command("states", "List the state catalog with current weather")

	riskCmd   = app.Command("risk", "Assess crowd risk for a state")
	riskState = riskCmd.Arg("state", "State name").Required().String()

	advisoryCmd      = app.Command("advisory", "Generate a public advisory")
	advisorySeverity = advisoryCmd.Flag("severity", "low, medium, high or critical").Required().Enum("low", "medium", "high", "critical")
	advisoryDrivers  = advisoryCmd.Flag("driver", "Risk driver, repeatable").Strings()
	advisoryRole     = advisoryCmd.Flag("role", "Audience").Default(advisorymodel.DefaultRole).String()

	smsCmd     = app.Command("sms", "Send an SMS alert")
	smsTo      = smsCmd.Flag("to", "E.164 recipient, defaults to TWILIO_TO_NUMBER").String()
	smsMessage = smsCmd.Arg("message", "Message body").Required().String()

	ttsCmd  = app.Command("tts", "Synthesize an audio alert")
	ttsLang = ttsCmd.Flag("lang", "Language code").Default("en").String()
	ttsName = ttsCmd.Flag("name", "Output file name").String()
	ttsText = ttsCmd.Arg("text", "Text to speak").Required().String()

	routeCmd    = app.Command("route", "Plan an evacuation route")
	routeState  = routeCmd.Flag("state", "State whose hazards and shelters apply").String()
	routeFrom   = routeCmd.Flag("from", "Origin as lat,lon").Required().String()
	routeTo     = routeCmd.Flag("to", "Target as lat,lon, defaults to the nearest shelter").String()
	routeMode   = routeCmd.Flag("mode", "shortest, fastest or safest").Default(route.ModeShortest).Enum(route.ModeShortest, route.ModeFastest, route.ModeSafest)
	routeAvoid  = routeCmd.Flag("avoid-hazards", "Block edges inside hazard zones").Bool()
	routeOnline = routeCmd.Flag("online", "Allow downloading the street graph").Bool()

	tokenCmd     = app.Command("token", "Issue an operator bearer token")
	tokenSubject = tokenCmd.Flag("subject", "Token subject").Default("operator").String()
	tokenTTL     = tokenCmd.Flag("ttl", "Token lifetime").Default("12h").Duration()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	_ = godotenv.Load()
	cfg, err := config.Load()
	app.FatalIfError(err, "load configuration")

	logCfg := config.LogConfig{Level: "warn", Format: "console"}
	if *verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	app.FatalIfError(err, "build logger")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	switch command {
	case statesCmd.FullCommand():
		err = runStates(ctx, cfg, logger)
	case riskCmd.FullCommand():
		err = runRisk(ctx, cfg, logger)
	case advisoryCmd.FullCommand():
		err = runAdvisory(ctx, cfg, logger)
	case smsCmd.FullCommand():
		err = runSMS(ctx, cfg, logger)
	case ttsCmd.FullCommand():
		err = runTTS(ctx, cfg, logger)
	case routeCmd.FullCommand():
		err = runRoute(ctx, cfg, logger)
	case tokenCmd.FullCommand():
		err = runToken(cfg)
	}
	app.FatalIfError(err, "%s", command)
}

func newDataService(cfg *config.Config, logger *zap.Logger) *data.Service {
	return data.NewService(cfg.Data.Dir, statemodel.NewMemoryStore(statemodel.MustSeed()), data.NewWeatherClient(cfg.Weather, logger), logger,
		data.WithHazardSpread(cfg.Data.HazardSpreadKm))
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func paintSeverity(severity string) string {
	switch severity {
	case risk.Critical:
		return color.New(color.BgRed, color.FgWhite, color.OpBold).Render(severity)
	case risk.High:
		return color.FgRed.Render(severity)
	case risk.Medium:
		return color.FgYellow.Render(severity)
	default:
		return color.FgGreen.Render(severity)
	}
}

func runStates(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	svc := newDataService(cfg, logger)
	table := newTable("State", "Lat", "Lon", "Rain (mm)", "Wind (km/h)", "Source")
	for _, st := range svc.States().List() {
		w := svc.Weather(ctx, st.Name)
		table.Append([]string{
			st.Name,
			strconv.FormatFloat(st.Lat, 'f', 4, 64),
			strconv.FormatFloat(st.Lon, 'f', 4, 64),
			strconv.FormatFloat(w.RainfallMM, 'f', 1, 64),
			strconv.FormatFloat(w.WindKPH, 'f', 1, 64),
			w.Source,
		})
	}
	table.Render()
	return nil
}

func runRisk(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	svc := newDataService(cfg, logger)
	if _, err := svc.Lookup(*riskState); err != nil {
		return err
	}
	analyzer, err := risk.NewAnalyzer()
	if err != nil {
		return err
	}

	a := situation.NewService(svc, nil, analyzer).Assess(ctx, *riskState)
	fmt.Printf("%s  %s (score %d)\n", color.OpBold.Render(a.State), paintSeverity(a.Decision.Severity), a.Decision.Score)
	table := newTable("People", "Hazards", "Rain (mm)", "Wind (km/h)")
	table.Append([]string{
		strconv.Itoa(a.People),
		strconv.Itoa(a.Hazards),
		strconv.FormatFloat(a.Weather.RainfallMM, 'f', 1, 64),
		strconv.FormatFloat(a.Weather.WindKPH, 'f', 1, 64),
	})
	table.Render()
	for _, d := range a.Decision.Drivers {
		fmt.Println("  -", d)
	}
	return nil
}

func runAdvisory(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	cache, err := advisory.LoadCache(cfg.Data.AdvisoryCachePath())
	if err != nil {
		logger.Warn("advisory cache unreadable", zap.Error(err))
	}
	gen := advisory.NewGenerator(ctx, ai.NewFactory(cfg.LLM), cache, cfg.LLM.MaxTokens, logger)

	out := gen.Generate(ctx, advisorymodel.Request{Severity: *advisorySeverity, Drivers: *advisoryDrivers, Role: *advisoryRole})
	fmt.Printf("%s [%s]\n%s\n", paintSeverity(out.Severity), color.FgGray.Render(string(out.Source)), out.Text)
	return nil
}

func runSMS(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	d := alert.NewDispatcher(cfg.SMS, logger)
	res := d.Send(ctx, *smsMessage, *smsTo)
	status := color.FgGreen.Render("sent")
	if !res.Sent {
		status = color.FgRed.Render("not sent")
	}
	fmt.Printf("%s (%s): %s\n", status, d.Mode(), res.Detail)
	return nil
}

func runTTS(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	res, err := speech.NewService(cfg.Speech, logger).Synthesize(ctx, *ttsText, *ttsLang, *ttsName)
	if err != nil {
		return err
	}
	table := newTable("Path", "Engine", "Lang", "Cached", "Fallback")
	table.Append([]string{res.Path, res.Engine, res.Language, strconv.FormatBool(res.Cached), strconv.FormatBool(res.Fallback)})
	table.Render()
	return nil
}

func runRoute(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	origin, err := parsePoint(*routeFrom)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	req := route.Request{State: *routeState, Origin: origin, Mode: *routeMode, AvoidHazards: *routeAvoid}
	if *routeTo != "" {
		target, err := parsePoint(*routeTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		req.Target = &target
	}

	svc := newDataService(cfg, logger)
	sd := svc.StateData(ctx, *routeState)
	planner := routing.NewPlanner(routing.NewLoader(cfg.Routing, logger), *routeOnline, logger)
	r, err := planner.Plan(ctx, req, sd.Hazards, sd.Shelters)
	if err != nil {
		return err
	}

	target := r.TargetName
	if target == "" {
		target = fmt.Sprintf("%.5f,%.5f", r.Target.Lat(), r.Target.Lon())
	}
	table := newTable("Mode", "Target", "Distance (m)", "Points", "Graph", "Blocked", "Fallback")
	table.Append([]string{
		r.Mode,
		target,
		strconv.FormatFloat(r.DistanceMeters, 'f', 0, 64),
		strconv.Itoa(len(r.Path)),
		r.GraphSource,
		strconv.Itoa(r.BlockedEdges),
		strconv.FormatBool(r.Fallback),
	})
	table.Render()
	return nil
}

func runToken(cfg *config.Config) error {
	if !cfg.Auth.Enabled() {
		return fmt.Errorf("OPERATOR_JWT_SECRET is not set")
	}
	token, err := auth.NewSigner(cfg.Auth.OperatorSecret).Issue(*tokenSubject, []string{auth.RoleOperator}, *tokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintln(os.Stderr, color.FgGray.Sprintf("expires %s", time.Now().Add(*tokenTTL).Format(time.RFC3339)))
	return nil
}

func parsePoint(raw string) (route.Point, error) {
	lat, lon, ok := strings.Cut(raw, ",")
	if !ok {
		return route.Point{}, fmt.Errorf("want lat,lon, got %q", raw)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return route.Point{}, err
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return route.Point{}, err
	}
	return route.Point{la, lo}, nil
}
