package agents

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/framework"
	"github.com/lexcodex/gitagent/tools"
)

// Move relocates one file.
type Move struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RestructureReport lists the moves made and the files left in place.
type RestructureReport struct {
	Moved   []Move
	Skipped []string
}

// DirectoryRestructurer asks the model for a new directory layout and moves
// files into it once the user agrees.
type DirectoryRestructurer struct{ stage }

func NewDirectoryRestructurer(rt *Runtime) *DirectoryRestructurer {
	return &DirectoryRestructurer{stage{name: DirectoryStructuringAgent, rt: rt}}
}

// Run proposes and, after confirmation, applies a layout. Every move is
// logged so undo can put files back.
func (d *DirectoryRestructurer) Run(ctx context.Context, instructions string) (*RestructureReport, error) {
	log := d.rt.log(d.name)
	report := &RestructureReport{}
	files, err := d.listFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		d.rt.report().Warn("The repository has no files to restructure.", nil)
		return report, nil
	}
	raw := d.generate(ctx, restructurePrompt(instructions, files), restructureOptions)
	if raw == "" {
		return report, nil
	}
	obj, ok := d.parseObject(ctx, raw)
	if !ok {
		return report, nil
	}
	if inner, ok := obj["structure"].(map[string]any); ok {
		obj = inner
	}
	structure := map[string][]string{}
	for dir := range obj {
		if list := stringList(obj, dir); len(list) > 0 {
			structure[dir] = list
		}
	}
	if len(structure) == 0 {
		d.rt.report().Warn("The model proposed an empty structure.", nil)
		return report, nil
	}
	d.remember("structure", structure)

	d.rt.report().Show("Proposed structure", formatStructure(structure))
	ok, err = framework.Confirm(ctx, d.rt.Prompter, "Do you want to apply this directory structure?")
	if err != nil {
		return nil, err
	}
	if !ok {
		d.rt.report().Status("Directory restructuring cancelled.")
		return report, nil
	}

	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f] = true
	}
	dirs := make([]string, 0, len(structure))
	for dir := range structure {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		for _, file := range structure[dir] {
			from := path.Clean(strings.TrimPrefix(file, "./"))
			to := path.Join(path.Clean(dir), path.Base(from))
			if from == to {
				continue
			}
			if err := d.move(from, to, known); err != nil {
				log.Warn("move skipped", zap.String("file", from), zap.String("to", to), zap.Error(err))
				d.rt.report().Warn(fmt.Sprintf("Skipping move of '%s'", from), err)
				report.Skipped = append(report.Skipped, from)
				continue
			}
			known[from] = false
			known[to] = true
			report.Moved = append(report.Moved, Move{From: from, To: to})
			d.rt.report().Status(fmt.Sprintf("Moved '%s' to '%s'.", from, to))
		}
	}
	log.Info("restructuring finished", zap.Int("moved", len(report.Moved)), zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

func (d *DirectoryRestructurer) move(from, to string, known map[string]bool) error {
	if !known[from] {
		return fmt.Errorf("%s is not a repository file", from)
	}
	ws := d.rt.Workspace
	if _, err := ws.Resolve(to); err != nil {
		return err
	}
	if ws.Exists(to) {
		return fmt.Errorf("%s already exists", to)
	}
	content, exists, err := ws.Read(from)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s no longer exists", from)
	}
	if err := d.rt.commitWrite(d.name, actionCreate, to, "", content); err != nil {
		return err
	}
	if err := ws.Remove(from); err != nil {
		return err
	}
	if err := d.rt.Changes.LogChange(d.name, actionMove, from, content, ""); err != nil {
		d.rt.rollback(d.name, from, content, true)
		return fmt.Errorf("record change: %w", err)
	}
	return nil
}

func (d *DirectoryRestructurer) listFiles() ([]string, error) {
	var files []string
	mapper := &RepositoryMapper{stage{name: d.name, rt: d.rt}}
	err := tools.WalkFiles(d.repoPath(), mapper.skipDir, func(rel string) error {
		files = append(files, rel)
		return nil
	})
	return files, err
}
