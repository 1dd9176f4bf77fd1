package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abhisek/brainbrew/internal/app"
	"github.com/abhisek/brainbrew/internal/extract"
	"github.com/abhisek/brainbrew/internal/screen"
	"github.com/abhisek/brainbrew/internal/screens/home"
	"github.com/abhisek/brainbrew/internal/screens/session"
	"github.com/abhisek/brainbrew/internal/screens/welcome"
	"github.com/abhisek/brainbrew/internal/speech"
	"github.com/abhisek/brainbrew/internal/store"
	"github.com/abhisek/brainbrew/internal/tutor"
	"github.com/spf13/cobra"
)

// studyTarget picks what the TUI opens on. The zero value shows the library.
type studyTarget struct {
	File   string
	DocID  string
	NoSave bool
}

var studyCmd = &cobra.Command{
	Use:   "study [file]",
	Short: "Start a study session",
	Long: "Without arguments, opens your document library. With a file, " +
		"analyses it, saves it to the library and starts a session right away.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var target studyTarget
		target.DocID, _ = cmd.Flags().GetString("doc")
		target.NoSave, _ = cmd.Flags().GetBool("no-save")
		if len(args) == 1 {
			target.File = args[0]
		}
		if target.File != "" && target.DocID != "" {
			return fmt.Errorf("pass either a file or --doc, not both")
		}
		return runStudy(cmd, target)
	},
}

func init() {
	studyCmd.Flags().String("doc", "", "Study a document already in the library")
	studyCmd.Flags().Bool("no-save", false, "Do not keep the file in the library")
}

// runStudy builds the services and launches the TUI.
func runStudy(cmd *cobra.Command, target studyTarget) error {
	ctx := cmd.Context()
	d, err := bootstrap(ctx, bootOptions{LLM: true})
	if err != nil {
		return err
	}
	defer d.Close()

	exchanges := d.Store.ExchangeRepo()
	sessionDeps := session.Deps{
		Content: d.Content,
		Grader:  d.Grader,
		Options: cfg.Tutor.Options(),
		Recorder: func(sessionID, documentID string) tutor.Recorder {
			return store.NewSessionRecorder(exchanges, sessionID, cfg.User, documentID)
		},
	}
	sessionDeps.Options.Logger = log.Named("tutor")

	if cfg.Speech.Enabled {
		dictation, err := openDictation(ctx)
		if err != nil {
			log.Warn("dictation unavailable", "error", err)
			fmt.Fprintln(os.Stderr, "Dictation unavailable:", err)
		} else {
			defer dictation.Close()
			sessionDeps.Dictation = dictation
		}
	}

	var root screen.Screen
	switch {
	case target.File != "":
		m, err := materialFromFile(ctx, d, target.File, !target.NoSave)
		if err != nil {
			return err
		}
		root = session.New(sessionDeps, m)
	case target.DocID != "":
		doc, err := d.Library.Document(ctx, target.DocID)
		if err != nil {
			return fmt.Errorf("load document %s: %s", target.DocID, tutor.UserMessage(err))
		}
		if doc.UserID != cfg.User {
			return fmt.Errorf("document %s not found", target.DocID)
		}
		root = session.New(sessionDeps, session.Material{
			Title:      doc.FileName,
			DocumentID: doc.ID,
			Text:       doc.Text,
			Topics:     doc.Topics,
		})
	default:
		lib := home.New(home.Deps{
			Library:   d.Library,
			Exchanges: exchanges,
			UserID:    cfg.User,
			Session:   sessionDeps,
		})
		root = welcome.New(func() screen.Screen { return lib })
	}

	return app.Run(ctx, app.Options{Root: root, Status: cfg.User})
}

// materialFromFile analyses a local file and, if save is set, stores it in
// the library so later sessions and history can refer to it.
func materialFromFile(ctx context.Context, d *deps, path string, save bool) (session.Material, error) {
	name, contentType, data, err := readDocument(path)
	if err != nil {
		return session.Material{}, err
	}

	fmt.Fprintf(os.Stderr, "Reading %s...\n", name)
	analysis, err := d.Content.Analyze(ctx, tutor.Document{Name: name, ContentType: contentType, Data: data})
	if err != nil {
		return session.Material{}, fmt.Errorf("analyze %s: %s", name, tutor.UserMessage(err))
	}

	m := session.Material{Title: name, Text: analysis.Text, Topics: analysis.Topics}
	if !save {
		return m, nil
	}
	rec, err := d.Library.Store(ctx, cfg.User, tutor.Blob{
		FileName:    name,
		ContentType: contentType,
		Data:        data,
		Topics:      analysis.Topics,
		Concepts:    analysis.Concepts,
		Text:        analysis.Text,
	})
	if err != nil {
		return session.Material{}, fmt.Errorf("save %s: %s", name, tutor.UserMessage(err))
	}
	m.DocumentID = rec.ID
	return m, nil
}

func readDocument(path string) (name, contentType string, data []byte, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", "", nil, err
	}
	if info.IsDir() {
		return "", "", nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > extract.MaxDocumentBytes {
		return "", "", nil, fmt.Errorf("%s is larger than %d MB", path, extract.MaxDocumentBytes>>20)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		return "", "", nil, err
	}
	name = filepath.Base(path)
	return name, extract.ContentType(name), data, nil
}

// openDictation connects the microphone to Google streaming recognition.
func openDictation(ctx context.Context) (*speech.Google, error) {
	src, err := speech.DetectCommandSource(cfg.Speech.SampleRate)
	if err != nil {
		return nil, err
	}
	return speech.NewGoogle(ctx, cfg.Speech.Config, src, log.Named("speech"))
}
