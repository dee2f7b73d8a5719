package cli

import (
	"context"
	"fmt"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/config"

	"github.com/spf13/cobra"
)

// NewSeedCmd inserts a demo room so a fresh database has something to play.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo users, a room and three questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			store, err := openPostgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			service := app.New(store, nil, logger)
			defer store.Close()

			code, err := seedDemo(cmd.Context(), service)
			if err != nil {
				return err
			}
			logger.Info().Str("room", code).Msg("demo data inserted")
			return nil
		},
	}
}

type demoQuestion struct {
	text    string
	options []string
	correct int
}

var demoQuestions = []demoQuestion{
	{text: "Qual é a capital do Brasil?", options: []string{"São Paulo", "Rio de Janeiro", "Brasília", "Salvador"}, correct: 2},
	{text: "Quanto é 2 + 2?", options: []string{"3", "4", "5", "6"}, correct: 1},
	{text: "Qual é a cor do céu?", options: []string{"Verde", "Vermelho", "Azul", "Amarelo"}, correct: 2},
}

// seedDemo creates an admin, a test player and an open room with the demo
// questions. It returns the room code.
func seedDemo(ctx context.Context, service *app.Service) (string, error) {
	admin, err := service.Users.Register(ctx, app.NewUser{Name: "Admin", Email: "admin@example.com"})
	if err != nil {
		return "", fmt.Errorf("seed admin: %w", err)
	}
	if _, err := service.Users.Register(ctx, app.NewUser{Name: "Jogador Teste", Email: "teste@example.com"}); err != nil {
		return "", fmt.Errorf("seed player: %w", err)
	}

	room, err := service.Rooms.Create(ctx, app.NewRoom{
		Name:        "Sala de Teste",
		Description: "Sala para testar o quiz",
		CreatedBy:   admin.ID,
	})
	if err != nil {
		return "", fmt.Errorf("seed room: %w", err)
	}
	for _, dq := range demoQuestions {
		in := app.NewQuestion{UserID: admin.ID, Text: dq.text, TimeLimit: 30}
		for i, opt := range dq.options {
			in.Alternatives = append(in.Alternatives, app.NewAlternative{Text: opt, IsCorrect: i == dq.correct})
		}
		if _, err := service.Rooms.AddQuestion(ctx, room.Code, in); err != nil {
			return "", fmt.Errorf("seed question: %w", err)
		}
	}
	if _, err := service.Rooms.Finalize(ctx, room.Code, admin.ID); err != nil {
		return "", fmt.Errorf("open room: %w", err)
	}
	return room.Code, nil
}
