package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/duel"
)

type questionStore interface {
	AddQuestion(ctx context.Context, subject string, q duel.Question) error
}

type seedQuestion struct {
	ID            string   `json:"id" validate:"notblank"`
	Subject       string   `json:"subject" validate:"notblank"`
	Prompt        string   `json:"prompt" validate:"required"`
	Options       []string `json:"options" validate:"min=2,dive,required"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required"`
	Explanation   string   `json:"explanation"`
}

func (sq seedQuestion) hasCorrectOption() bool {
	for _, opt := range sq.Options {
		if opt == sq.CorrectAnswer {
			return true
		}
	}
	return false
}

func (cli *commandLine) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Add the questions of a JSON file to the question bank",
		Long: "Add the questions of a JSON file to the question bank.\n" +
			"FILE holds an array of {id, subject, prompt, options, correctAnswer, explanation}; " +
			"questions whose id is already in the bank are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "reading questions file")
			}
			var questions []seedQuestion
			if err := json.Unmarshal(data, &questions); err != nil {
				return errors.Wrap(err, "decoding questions file")
			}

			// validate everything before writing anything
			validate, translator := core.NewValidator()
			for i, sq := range questions {
				msg := fmt.Sprintf("invalid question #%d", i+1)
				if err := core.CheckStruct(validate, translator, sq, msg); err != nil {
					return err
				}
				if !sq.hasCorrectOption() {
					return core.NewValidationError(errors.New(msg),
						core.FieldError{Field: "correctAnswer", Error: "correctAnswer must be one of the options"})
				}
			}

			for _, sq := range questions {
				q := duel.Question{
					ID:            sq.ID,
					Prompt:        sq.Prompt,
					Options:       sq.Options,
					CorrectAnswer: sq.CorrectAnswer,
					Explanation:   sq.Explanation,
				}
				if err := cli.questions.AddQuestion(cmd.Context(), sq.Subject, q); err != nil {
					return err
				}
			}
			fmt.Fprintf(cli.out, "seeded %d question(s)\n", len(questions))
			return nil
		},
	}
}
