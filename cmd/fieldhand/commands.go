package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fieldhand/fieldhand/internal/advisor"
	"github.com/fieldhand/fieldhand/internal/config"
	"github.com/fieldhand/fieldhand/internal/ingest"
	"github.com/fieldhand/fieldhand/internal/storage"
)

func readPhoto(path string) (*advisor.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	return &advisor.Attachment{
		MimeType: http.DetectContentType(data),
		Data:     data,
	}, nil
}

// --- soil ---

var soilCmd = &cobra.Command{
	Use:   "soil",
	Short: "Analyze soil health from measurements, a photo, or a lab report",
	Long: `Analyze soil health from measurements, a photo, or a lab report.

Examples:
  fieldhand soil --ph 6.4 --om 3.2 --texture loam
  fieldhand soil --ph 6.4 --om 3.2 --photo ./topsoil.jpg --save
  fieldhand soil --ph 7.1 --om 1.8 --report ./lab-report.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ph, _ := cmd.Flags().GetFloat64("ph")
		om, _ := cmd.Flags().GetFloat64("om")
		texture, _ := cmd.Flags().GetString("texture")
		photoPath, _ := cmd.Flags().GetString("photo")
		reportPath, _ := cmd.Flags().GetString("report")
		save, _ := cmd.Flags().GetBool("save")

		in := advisor.SoilInput{PH: ph, OrganicMatter: om, Texture: texture}
		if photoPath != "" {
			photo, err := readPhoto(photoPath)
			if err != nil {
				return err
			}
			in.Photo = photo
		}
		if reportPath != "" {
			text, err := ingest.PDFText(reportPath)
			if err != nil {
				return fmt.Errorf("extracting report text: %w", err)
			}
			in.ReportText = text
		}

		svc, cfg, err := newAdvisory()
		if err != nil {
			return err
		}
		store := openStore(cfg)
		defer store.Close()

		ctx := cmd.Context()
		printStatus("soil", "analyzing (pH %.1f, OM %.1f%%)", ph, om)
		result, err := svc.AnalyzeSoil(ctx, callContext(ctx, cfg, store), in)
		if err != nil {
			return err
		}
		printSoilResult(result)

		if save {
			log := storage.SoilLog{
				ID:            storage.NewID(),
				CreatedAt:     time.Now().UTC(),
				PH:            ph,
				OrganicMatter: om,
				Texture:       texture,
				HealthScore:   result.HealthScore,
			}
			if result.Analysis != nil {
				log.Analysis = *result.Analysis
			}
			if err := store.SaveSoilLog(ctx, log); err != nil {
				return fmt.Errorf("saving soil log: %w", err)
			}
			printSuccess("saved soil log %s", log.ID)
		}
		return nil
	},
}

// --- diagnose ---

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Diagnose a crop problem from a photo",
	RunE: func(cmd *cobra.Command, args []string) error {
		crop, _ := cmd.Flags().GetString("crop")
		photoPath, _ := cmd.Flags().GetString("photo")
		if photoPath == "" {
			return fmt.Errorf("--photo is required")
		}
		photo, err := readPhoto(photoPath)
		if err != nil {
			return err
		}

		svc, cfg, err := newAdvisory()
		if err != nil {
			return err
		}
		store := openStore(cfg)
		defer store.Close()

		ctx := cmd.Context()
		advice, err := svc.DiagnoseCrop(ctx, callContext(ctx, cfg, store), advisor.DiagnosisInput{
			Crop:  crop,
			Photo: photo,
		})
		if err != nil {
			return err
		}
		printAdvice(advice)
		return nil
	},
}

// --- market ---

var marketCmd = &cobra.Command{
	Use:   "market <query>",
	Short: "Analyze market prices and trends for a crop or product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bulletinPath, _ := cmd.Flags().GetString("bulletin")

		in := advisor.MarketInput{Query: args[0]}
		if bulletinPath != "" {
			f, err := os.Open(bulletinPath)
			if err != nil {
				return fmt.Errorf("opening bulletin: %w", err)
			}
			text, err := ingest.HTMLText(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("extracting bulletin text: %w", err)
			}
			in.BulletinText = text
		}

		svc, cfg, err := newAdvisory()
		if err != nil {
			return err
		}
		store := openStore(cfg)
		defer store.Close()

		ctx := cmd.Context()
		result, err := svc.AnalyzeMarket(ctx, callContext(ctx, cfg, store), in)
		if err != nil {
			return err
		}
		printMarketResult(result)
		return nil
	},
}

// --- plan ---

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan what to grow this season",
	RunE: func(cmd *cobra.Command, args []string) error {
		soilType, _ := cmd.Flags().GetString("soil-type")
		season, _ := cmd.Flags().GetString("season")
		pestResistant, _ := cmd.Flags().GetBool("pest-resistant")

		svc, cfg, err := newAdvisory()
		if err != nil {
			return err
		}
		store := openStore(cfg)
		defer store.Close()

		ctx := cmd.Context()
		result, err := svc.PlanCrop(ctx, callContext(ctx, cfg, store), advisor.PlanInput{
			SoilType:      soilType,
			Season:        season,
			PestResistant: pestResistant,
		})
		if err != nil {
			return err
		}
		printPlanResult(result)
		return nil
	},
}

// --- irrigate ---

var irrigateCmd = &cobra.Command{
	Use:   "irrigate",
	Short: "Get irrigation advice for a crop",
	RunE: func(cmd *cobra.Command, args []string) error {
		crop, _ := cmd.Flags().GetString("crop")
		stage, _ := cmd.Flags().GetString("stage")

		in := advisor.IrrigationInput{Crop: crop, GrowthStage: stage}
		if cmd.Flags().Changed("moisture") {
			m, _ := cmd.Flags().GetFloat64("moisture")
			in.SoilMoisture = &m
		}

		svc, cfg, err := newAdvisory()
		if err != nil {
			return err
		}
		store := openStore(cfg)
		defer store.Close()

		ctx := cmd.Context()
		advice, err := svc.AdviseIrrigation(ctx, callContext(ctx, cfg, store), in)
		if err != nil {
			return err
		}
		printAdvice(advice)
		return nil
	},
}

// --- weather ---

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Get a farming-relevant weather tip",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cfg, err := newAdvisory()
		if err != nil {
			return err
		}
		store := openStore(cfg)
		defer store.Close()

		ctx := cmd.Context()
		advice, err := svc.GetWeatherTip(ctx, callContext(ctx, cfg, store))
		if err != nil {
			return err
		}
		printAdvice(advice)
		return nil
	},
}

// --- suppliers ---

var suppliersCmd = &cobra.Command{
	Use:   "suppliers <query>",
	Short: "Find nearby agricultural suppliers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cfg, err := newAdvisory()
		if err != nil {
			return err
		}
		store := openStore(cfg)
		defer store.Close()

		ctx := cmd.Context()
		advice, err := svc.FindSuppliers(ctx, callContext(ctx, cfg, store), advisor.SupplierInput{
			Query: args[0],
		})
		if err != nil {
			return err
		}
		printAdvice(advice)
		return nil
	},
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agronomist (interactive)",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cfg, err := newAdvisory()
		if err != nil {
			return err
		}
		store := openStore(cfg)
		defer store.Close()

		ctx := cmd.Context()
		cc := callContext(ctx, cfg, store)
		session := &advisor.Session{}

		fmt.Fprintln(os.Stderr, "Ask the agronomist anything. Type 'exit' to leave.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, colorize(colorCyan, "you> "))
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			advice, err := svc.Converse(ctx, cc, session, line)
			if err != nil {
				printError("%v", err)
				continue
			}
			session.Append(advisor.ModelTurn(advice.Text))
			printAdvice(advice)
		}
		return scanner.Err()
	},
}

// --- dashboard ---

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show today's weather tip, open tasks, and recent irrigation",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cfg, err := newAdvisory()
		if err != nil {
			return err
		}
		store := openStore(cfg)
		defer store.Close()

		ctx := cmd.Context()
		cc := callContext(ctx, cfg, store)

		var (
			tip        advisor.Advice
			tasks      []storage.Task
			irrigation []storage.IrrigationLog
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			tip, err = svc.GetWeatherTip(gctx, cc)
			return err
		})
		g.Go(func() error {
			var err error
			tasks, err = store.Tasks(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			irrigation, err = store.IrrigationLogs(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Println(colorize(colorBold, "Weather"))
		fmt.Println(tip.Text)

		fmt.Println()
		fmt.Println(colorize(colorBold, "Open tasks"))
		open := 0
		for _, t := range tasks {
			if t.Done {
				continue
			}
			open++
			due := ""
			if t.DueDate != nil {
				due = " (due " + t.DueDate.Format("2006-01-02") + ")"
			}
			fmt.Printf("  [%s] %s%s\n", t.ID, t.Title, due)
		}
		if open == 0 {
			fmt.Println("  none")
		}

		fmt.Println()
		fmt.Println(colorize(colorBold, "Recent irrigation"))
		for i, l := range irrigation {
			if i >= 5 {
				break
			}
			amount := ""
			if l.AmountMM != nil {
				amount = fmt.Sprintf(", %.0fmm", *l.AmountMM)
			}
			fmt.Printf("  %s %s%s\n", l.CreatedAt.Format("2006-01-02"), l.Crop, amount)
		}
		if len(irrigation) == 0 {
			fmt.Println("  none")
		}
		return nil
	},
}

// --- logs ---

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Manage farm records",
}

func withStore(fn func(cmd *cobra.Command, args []string, store *storage.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store := openStore(cfg)
		defer store.Close()
		return fn(cmd, args, store)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var logsSoilCmd = &cobra.Command{
	Use:   "soil",
	Short: "List saved soil analyses",
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		logs, err := store.SoilLogs(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(logs)
	}),
}

var logsSoilRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a soil log",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		if err := store.DeleteSoilLog(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSuccess("deleted %s", args[0])
		return nil
	}),
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List farm tasks",
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		tasks, err := store.Tasks(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(tasks)
	}),
}

var tasksAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a farm task",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		details, _ := cmd.Flags().GetString("details")
		dueStr, _ := cmd.Flags().GetString("due")

		task := storage.Task{
			ID:        storage.NewID(),
			CreatedAt: time.Now().UTC(),
			Title:     args[0],
			Details:   details,
		}
		if dueStr != "" {
			due, err := time.Parse("2006-01-02", dueStr)
			if err != nil {
				return fmt.Errorf("invalid --due date (want YYYY-MM-DD): %w", err)
			}
			task.DueDate = &due
		}
		if err := store.SaveTask(cmd.Context(), task); err != nil {
			return err
		}
		printSuccess("added task %s", task.ID)
		return nil
	}),
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		tasks, err := store.Tasks(cmd.Context())
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if t.ID != args[0] {
				continue
			}
			t.Done = true
			if err := store.SaveTask(cmd.Context(), t); err != nil {
				return err
			}
			printSuccess("done: %s", t.Title)
			return nil
		}
		return fmt.Errorf("no task with id %s", args[0])
	}),
}

var tasksRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		if err := store.DeleteTask(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSuccess("deleted %s", args[0])
		return nil
	}),
}

var logsIrrigationCmd = &cobra.Command{
	Use:   "irrigation",
	Short: "List irrigation records",
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		logs, err := store.IrrigationLogs(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(logs)
	}),
}

var logsIrrigationAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an irrigation event",
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		crop, _ := cmd.Flags().GetString("crop")
		stage, _ := cmd.Flags().GetString("stage")
		notes, _ := cmd.Flags().GetString("notes")
		if crop == "" {
			return fmt.Errorf("--crop is required")
		}

		log := storage.IrrigationLog{
			ID:          storage.NewID(),
			CreatedAt:   time.Now().UTC(),
			Crop:        crop,
			GrowthStage: stage,
			Notes:       notes,
		}
		if cmd.Flags().Changed("mm") {
			mm, _ := cmd.Flags().GetFloat64("mm")
			log.AmountMM = &mm
		}
		if err := store.SaveIrrigationLog(cmd.Context(), log); err != nil {
			return err
		}
		printSuccess("recorded irrigation %s", log.ID)
		return nil
	}),
}

var logsIrrigationRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an irrigation record",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		if err := store.DeleteIrrigationLog(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSuccess("deleted %s", args[0])
		return nil
	}),
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the farm profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the farm profile as JSON",
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		p, err := store.GetProfile(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(p)
	}),
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update farm profile fields",
	Long: `Update farm profile fields. Only flags you pass are changed.

Examples:
  fieldhand profile set --name "R. Okafor" --farm "Greenridge"
  fieldhand profile set --lat 45.52 --lon -122.68 --locale en-US
  fieldhand profile set --crops "tomatoes,garlic,cover rye"`,
	RunE: withStore(func(cmd *cobra.Command, args []string, store *storage.Store) error {
		p, err := store.GetProfile(cmd.Context())
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("name") {
			p.Name, _ = cmd.Flags().GetString("name")
		}
		if cmd.Flags().Changed("farm") {
			p.FarmName, _ = cmd.Flags().GetString("farm")
		}
		if cmd.Flags().Changed("locale") {
			p.Locale, _ = cmd.Flags().GetString("locale")
		}
		if cmd.Flags().Changed("lat") {
			lat, _ := cmd.Flags().GetFloat64("lat")
			p.Latitude = &lat
		}
		if cmd.Flags().Changed("lon") {
			lon, _ := cmd.Flags().GetFloat64("lon")
			p.Longitude = &lon
		}
		if cmd.Flags().Changed("crops") {
			cropsStr, _ := cmd.Flags().GetString("crops")
			var crops []string
			for _, c := range strings.Split(cropsStr, ",") {
				if c = strings.TrimSpace(c); c != "" {
					crops = append(crops, c)
				}
			}
			p.Crops = crops
		}

		if err := store.SaveProfile(cmd.Context(), p); err != nil {
			return err
		}
		printSuccess("profile updated")
		return nil
	}),
}

func init() {
	soilCmd.Flags().Float64("ph", 7.0, "soil pH")
	soilCmd.Flags().Float64("om", 0, "organic matter percent")
	soilCmd.Flags().String("texture", "", "soil texture (sand, loam, clay, ...)")
	soilCmd.Flags().String("photo", "", "path to a soil photo")
	soilCmd.Flags().String("report", "", "path to a lab report PDF")
	soilCmd.Flags().Bool("save", false, "save the analysis to the soil log")

	diagnoseCmd.Flags().String("crop", "", "crop name")
	diagnoseCmd.Flags().String("photo", "", "path to a photo of the affected plant (required)")

	marketCmd.Flags().String("bulletin", "", "path to a market bulletin HTML file")

	planCmd.Flags().String("soil-type", "", "soil type")
	planCmd.Flags().String("season", "", "target season")
	planCmd.Flags().Bool("pest-resistant", false, "prefer pest-resistant varieties")

	irrigateCmd.Flags().String("crop", "", "crop name")
	irrigateCmd.Flags().String("stage", "", "growth stage")
	irrigateCmd.Flags().Float64("moisture", 0, "volumetric soil moisture percent")

	tasksAddCmd.Flags().String("details", "", "task details")
	tasksAddCmd.Flags().String("due", "", "due date (YYYY-MM-DD)")

	logsIrrigationAddCmd.Flags().String("crop", "", "crop name (required)")
	logsIrrigationAddCmd.Flags().String("stage", "", "growth stage")
	logsIrrigationAddCmd.Flags().Float64("mm", 0, "water applied in millimeters")
	logsIrrigationAddCmd.Flags().String("notes", "", "free-form notes")

	profileSetCmd.Flags().String("name", "", "farmer name")
	profileSetCmd.Flags().String("farm", "", "farm name")
	profileSetCmd.Flags().String("locale", "", "locale code, e.g. en-US")
	profileSetCmd.Flags().Float64("lat", 0, "farm latitude")
	profileSetCmd.Flags().Float64("lon", 0, "farm longitude")
	profileSetCmd.Flags().String("crops", "", "comma-separated list of crops grown")

	logsSoilCmd.AddCommand(logsSoilRmCmd)
	tasksCmd.AddCommand(tasksAddCmd)
	tasksCmd.AddCommand(tasksDoneCmd)
	tasksCmd.AddCommand(tasksRmCmd)
	logsIrrigationCmd.AddCommand(logsIrrigationAddCmd)
	logsIrrigationCmd.AddCommand(logsIrrigationRmCmd)
	logsCmd.AddCommand(logsSoilCmd)
	logsCmd.AddCommand(tasksCmd)
	logsCmd.AddCommand(logsIrrigationCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
}
