package main

import (
	"fmt"
	"os"

	"github.com/fieldhand/fieldhand/internal/advisor"
	"github.com/fieldhand/fieldhand/internal/gemini"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

func printSources(sources []gemini.GroundingChunk) {
	if len(sources) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(colorize(colorBold, "Sources:"))
	for _, s := range sources {
		switch {
		case s.Web != nil:
			fmt.Printf("  - %s (%s)\n", s.Web.Title, s.Web.URI)
		case s.Maps != nil:
			fmt.Printf("  - %s (%s)\n", s.Maps.Title, s.Maps.URI)
		}
	}
}

func printSoilResult(r advisor.SoilAnalysisResult) {
	if r.HealthScore != nil {
		fmt.Printf("%s %.0f/100\n\n", colorize(colorBold, "Soil health:"), *r.HealthScore)
	}
	if r.Analysis != nil {
		fmt.Println(*r.Analysis)
	}
	if len(r.Nutrients) > 0 {
		fmt.Println()
		fmt.Println(colorize(colorBold, "Nutrients:"))
		for _, n := range r.Nutrients {
			name, level := "?", "?"
			if n.Name != nil {
				name = *n.Name
			}
			if n.Level != nil {
				level = *n.Level
			}
			if n.Value != nil {
				fmt.Printf("  %-12s %-10s %3.0f/100\n", name, level, *n.Value)
			} else {
				fmt.Printf("  %-12s %s\n", name, level)
			}
		}
	}
	if len(r.VisualIndicators) > 0 {
		fmt.Println()
		fmt.Println(colorize(colorBold, "Visual indicators:"))
		for _, v := range r.VisualIndicators {
			fmt.Printf("  - %s\n", v)
		}
	}
	if r.Texture != nil && r.Texture.Type != nil {
		conf := 0.0
		if r.Texture.Confidence != nil {
			conf = *r.Texture.Confidence
		}
		fmt.Printf("\n%s %s (confidence %.0f%%)\n", colorize(colorBold, "Texture estimate:"), *r.Texture.Type, conf*100)
	}
	printSources(r.Sources)
}

func printMarketResult(r advisor.MarketAnalysisResult) {
	if r.Analysis != nil {
		fmt.Println(*r.Analysis)
	}
	if len(r.Prices) > 0 {
		fmt.Println()
		fmt.Println(colorize(colorBold, "Prices:"))
		for _, p := range r.Prices {
			label := "?"
			if p.Label != nil {
				label = *p.Label
			}
			if p.Price != nil {
				fmt.Printf("  %-32s %10.2f\n", label, *p.Price)
			} else {
				fmt.Printf("  %s\n", label)
			}
		}
	}
	printSources(r.Sources)
}

func printPlanResult(r advisor.CropPlanResult) {
	if r.Analysis != nil {
		fmt.Println(*r.Analysis)
	}
	if len(r.Recommendations) > 0 {
		fmt.Println()
		fmt.Println(colorize(colorBold, "Recommendations:"))
		for _, rec := range r.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
	if len(r.RotationPlan) > 0 {
		fmt.Println()
		fmt.Println(colorize(colorBold, "Rotation plan:"))
		for i, step := range r.RotationPlan {
			fmt.Printf("  %d. %s\n", i+1, step)
		}
	}
	printSources(r.Sources)
}

func printAdvice(a advisor.Advice) {
	fmt.Println(a.Text)
	printSources(a.Sources)
}
