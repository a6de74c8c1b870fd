package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/adapters/schalter"
	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/config"
)

func infoCommand(def config.Config) cli.Command {
	return cli.Command{
		Name:      "info",
		Aliases:   []string{"i"},
		Usage:     "show a lesson and when its enrollment opens",
		UsageText: "azs info [options] <lesson-id>",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "server", Value: def.ServerURL, Usage: "booking service base URL"},
			cli.DurationFlag{Name: "timeout", Value: def.HTTPTimeout, Usage: "per-request HTTP timeout"},
		},
		Action: func(c *cli.Context) error {
			lessonID := c.Args().First()
			if lessonID == "" {
				lessonID = def.LessonID
			}
			if lessonID == "" {
				return fmt.Errorf("missing lesson id")
			}

			// La lecture est publique, pas besoin de token.
			client := schalter.NewClient("", c.Duration("timeout")).WithBaseURL(c.String("server"))
			lesson, err := client.FetchLesson(context.Background(), lessonID)
			if err != nil {
				return err
			}

			fmt.Printf("Sport:            %s\n", lesson.SportName)
			fmt.Printf("Title:            %s\n", lesson.Title)
			fmt.Printf("Enrollment opens: %s\n", lesson.EnrollmentFrom.Format(time.RFC3339))
			fmt.Printf("Participants:     %d/%d\n", lesson.ParticipantCount, lesson.ParticipantsMax)

			wait := time.Until(lesson.EnrollmentFrom)
			switch {
			case wait > 0:
				fmt.Printf("Opens in:         %s\n", wait.Round(time.Second))
			case lesson.Full():
				fmt.Println("Window is open but the lesson is full.")
			default:
				fmt.Println("Window is already open.")
			}
			return nil
		},
	}
}
