package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/homewarden/homewarden/internal/session"
	"github.com/homewarden/homewarden/internal/workflow"
)

var (
	troubleshootUrgency string
	troubleshootContext string
)

var troubleshootCmd = &cobra.Command{
	Use:   "troubleshoot [device] [symptom]",
	Short: "Diagnose an equipment problem step by step",
	Long: `Start a diagnostic session for a device. You describe the symptom,
answer a few follow-up questions, and get numbered diagnostic steps.
Hazardous symptoms stop the session immediately with a referral to a
licensed professional.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTroubleshoot,
}

func init() {
	troubleshootCmd.Flags().StringVar(&troubleshootUrgency, "urgency", "", "how urgent the problem is (e.g. \"no heat, -10 outside\")")
	troubleshootCmd.Flags().StringVar(&troubleshootContext, "context", "", "anything else worth knowing")
	rootCmd.AddCommand(troubleshootCmd)
}

func runTroubleshoot(cmd *cobra.Command, args []string) error {
	ctx, cancel, a, err := setupApp()
	if err != nil {
		return err
	}
	defer cancel()
	defer closeApp(a)

	prof, err := a.LoadProfile(ctx)
	if err != nil {
		a.Logger.Warn("house profile unavailable", "error", err)
	}

	intake, err := a.Troubleshooter.Intake(ctx, workflow.IntakeRequest{
		DeviceType:        args[0],
		Symptom:           strings.Join(args[1:], " "),
		Urgency:           troubleshootUrgency,
		AdditionalContext: troubleshootContext,
		Profile:           prof,
	})
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	if intake.IsSafetyStop {
		fmt.Println(intake.SafetyMessage)
		if intake.RecommendedProfessional != "" {
			fmt.Printf("\nCall a %s.\n", intake.RecommendedProfessional)
		}
		return nil
	}

	if intake.PreliminaryAssessment != "" {
		fmt.Println(intake.PreliminaryAssessment)
		fmt.Println()
	}

	answers, err := promptAnswers(os.Stdin, intake.FollowupQuestions)
	if err != nil {
		return err
	}

	diagnosis, err := a.Troubleshooter.SubmitAnswers(ctx, intake.SessionID, answers, prof)
	if err != nil {
		return fmt.Errorf("generating diagnosis: %w", err)
	}

	if diagnosis.IsSafetyStop {
		fmt.Println(diagnosis.SafetyMessage)
		if diagnosis.RecommendedProfessional != "" {
			fmt.Printf("\nCall a %s.\n", diagnosis.RecommendedProfessional)
		}
		return nil
	}

	fmt.Println(diagnosis.Markdown)
	return nil
}

// promptAnswers asks each follow-up question, reading answers from in.
// Empty answers are allowed; the diagnosis treats them as "unknown".
func promptAnswers(in io.Reader, questions []session.FollowupQuestion) ([]session.FollowupAnswer, error) {
	reader := bufio.NewReader(in)
	answers := make([]session.FollowupAnswer, 0, len(questions))

	for _, q := range questions {
		fmt.Printf("%s\n", q.Question)
		if len(q.Options) > 0 {
			fmt.Printf("  (%s)\n", strings.Join(q.Options, " / "))
		}
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("reading answer: %w", err)
		}
		answers = append(answers, session.FollowupAnswer{
			QuestionID: q.ID,
			Answer:     strings.TrimSpace(line),
		})
		fmt.Println()
	}

	return answers, nil
}
