package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"wayfinder/internal/logging"
	"wayfinder/internal/orchestrator"
	"wayfinder/internal/travel"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Get a one-shot route recommendation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		req, err := recommendRequest(cmd)
		if err != nil {
			return err
		}

		logger := logging.NewComponentLogger("recommend")
		components, err := buildComponents(cfg, logger)
		if err != nil {
			return err
		}

		result := components.pipeline.Recommend(cmd.Context(), req)
		printResult(result)
		if result.Kind == orchestrator.KindError {
			return fmt.Errorf("%s", result.Error.Message)
		}
		return nil
	},
}

func init() {
	recommendCmd.Flags().String("user", "local", "user id for the preference profile")
	recommendCmd.Flags().String("from", "", "origin (free text)")
	recommendCmd.Flags().String("to", "", "destination (free text)")
	recommendCmd.Flags().String("city", "", "selected city code (nyc, berlin, london, paris)")
	recommendCmd.Flags().String("intent", "", "trip intent (commute, leisure, errand, social)")
	recommendCmd.Flags().String("note", "", "free-text note, e.g. \"in a hurry, avoid crowds\"")
	recommendCmd.Flags().Bool("debug", false, "include the pipeline trace in the output")
}

func recommendRequest(cmd *cobra.Command) (orchestrator.Request, error) {
	userID, _ := cmd.Flags().GetString("user")
	origin, _ := cmd.Flags().GetString("from")
	dest, _ := cmd.Flags().GetString("to")
	city, _ := cmd.Flags().GetString("city")
	intent, _ := cmd.Flags().GetString("intent")
	note, _ := cmd.Flags().GetString("note")
	debug, _ := cmd.Flags().GetBool("debug")

	interactive := isTTY()
	var err error
	if origin == "" {
		if origin, err = promptText("Origin"); err != nil {
			return orchestrator.Request{}, err
		}
	}
	if dest == "" {
		if dest, err = promptText("Destination"); err != nil {
			return orchestrator.Request{}, err
		}
	}
	if city == "" {
		if !interactive {
			return orchestrator.Request{}, fmt.Errorf("--city is required when not running interactively")
		}
		if city, err = promptSelect("City", []string{"nyc", "berlin", "london", "paris"}); err != nil {
			return orchestrator.Request{}, err
		}
	}
	if intent == "" {
		if !interactive {
			intent = string(travel.IntentCommute)
		} else if intent, err = promptSelect("Trip intent", []string{"commute", "leisure", "errand", "social"}); err != nil {
			return orchestrator.Request{}, err
		}
	}

	return orchestrator.Request{
		UserID:       userID,
		Origin:       origin,
		Destination:  dest,
		SelectedCity: city,
		Intent:       travel.TripIntent(intent),
		Note:         note,
		Debug:        debug,
	}, nil
}

func promptText(label string) (string, error) {
	if !isTTY() {
		return "", fmt.Errorf("--%s is required when not running interactively", promptFlag(label))
	}
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if s == "" {
				return fmt.Errorf("%s must not be empty", label)
			}
			return nil
		},
	}
	return prompt.Run()
}

func promptSelect(label string, items []string) (string, error) {
	sel := promptui.Select{Label: label, Items: items}
	_, choice, err := sel.Run()
	return choice, err
}

func promptFlag(label string) string {
	switch label {
	case "Origin":
		return "from"
	case "Destination":
		return "to"
	}
	return "city"
}

func printResult(result orchestrator.Result) {
	switch result.Kind {
	case orchestrator.KindPlan:
		printPlan(result.Plan)
	case orchestrator.KindCityMismatch:
		fmt.Printf("%s %s\n", yellow("City check:"), result.CityMismatch.Message)
		fmt.Printf("%s wayfinder recommend --city %s ...\n", gray("Try:"), result.CityMismatch.SuggestedCity)
	case orchestrator.KindNoRoutes:
		fmt.Printf("%s %s\n", yellow("No routes:"), result.NoRoutes.Reason)
	case orchestrator.KindError:
		fmt.Printf("%s %s\n", red("Error:"), result.Error.Message)
	}
	if result.Debug != nil {
		printDebug(result.Debug)
	}
}

func printPlan(plan *orchestrator.Plan) {
	fmt.Printf("%s %s route via %s (%s)\n", green("Plan:"), bold(plan.Archetype), plan.Mode, minutesLabel(plan.DurationMin))
	fmt.Println()
	for i, step := range plan.Steps {
		fmt.Printf("  %d. %s\n", i+1, step)
	}
	fmt.Println()
	fmt.Printf("%s %s\n", cyan("Why:"), plan.Reasoning)
	if plan.Tradeoff != "" {
		fmt.Printf("%s %s\n", cyan("Tradeoff:"), plan.Tradeoff)
	}
	if plan.WalkingNote != "" {
		fmt.Printf("%s %s\n", cyan("Walking:"), plan.WalkingNote)
	}
	if plan.MemoryCallback != "" {
		fmt.Printf("%s %s\n", cyan("From your history:"), plan.MemoryCallback)
	}
	fmt.Println()
	fmt.Println(gray(plan.DepthLayer.Presence))
	fmt.Println(gray(plan.DepthLayer.Framing))
	for _, insight := range plan.DepthLayer.Insights {
		fmt.Println(gray("  - " + insight))
	}
	fmt.Println(gray(plan.DepthLayer.Responsibility))
}

func printDebug(debug *orchestrator.DebugPayload) {
	fmt.Println()
	fmt.Println(bold("Pipeline trace"))
	for _, inv := range debug.Invocations {
		status := green("ok")
		switch {
		case !inv.Success:
			status = red("error")
		case inv.FallbackUsed:
			status = yellow("fallback")
		}
		fmt.Printf("  %-18s %-8s %s\n", inv.Skill, status, gray(inv.Duration.String()))
	}
	if len(debug.Scores) > 0 {
		fmt.Println(bold("Scores"))
		for _, s := range debug.Scores {
			marker := " "
			if s.ViolatesConstraints {
				marker = red("!")
			}
			fmt.Printf("  %s %-22s %6.1f  %s\n", marker, s.CandidateID, s.Score, gray(fmt.Sprintf("calm %.0f fast %.0f comfort %.0f cost %.0f", s.Breakdown.Calm, s.Breakdown.Fast, s.Breakdown.Comfort, s.Breakdown.Cost)))
		}
	}
}

func minutesLabel(m float64) string {
	return fmt.Sprintf("%d min", int(m+0.5))
}
