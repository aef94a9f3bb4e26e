package agents

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/framework/ast"
	"github.com/lexcodex/gitagent/tools"
)

// RepoScan is the parsed view of every source file in the repository.
type RepoScan struct {
	// Files maps slash-separated relative paths to their top-level
	// functions in source order.
	Files map[string][]ast.Function
	// Languages records the parser language used for each file.
	Languages map[string]string
}

// Names reduces the scan to file -> function names.
func (s *RepoScan) Names() map[string][]string {
	out := make(map[string][]string, len(s.Files))
	for file, fns := range s.Files {
		names := make([]string, 0, len(fns))
		for _, fn := range fns {
			names = append(names, fn.Name)
		}
		out[file] = names
	}
	return out
}

// RepositoryMapper walks the target repository and lists the functions of
// every file a registered parser understands.
type RepositoryMapper struct{ stage }

func NewRepositoryMapper(rt *Runtime) *RepositoryMapper {
	return &RepositoryMapper{stage{name: RepositoryMappingAgent, rt: rt}}
}

// Scan parses the repository. A file that fails to read or parse is logged
// and left out; only a failed walk is an error.
func (m *RepositoryMapper) Scan(ctx context.Context) (*RepoScan, error) {
	log := m.rt.log(m.name)
	root := m.repoPath()
	scan := &RepoScan{Files: map[string][]ast.Function{}, Languages: map[string]string{}}
	parsers := m.rt.parsers()
	err := tools.WalkFiles(root, m.skipDir, func(rel string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		parser, ok := parsers.ForFile(rel)
		if !ok {
			return nil
		}
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			log.Warn("failed to read file", zap.String("file", rel), zap.Error(err))
			return nil
		}
		if !tools.IsText(content) {
			return nil
		}
		fns, err := ast.CachedFunctions(m.rt.ParseCache, parser, rel, content)
		if err != nil {
			log.Warn("failed to parse file", zap.String("file", rel), zap.Error(err))
			m.rt.report().Warn("Skipping "+rel+": parse failed", err)
			return nil
		}
		scan.Files[rel] = fns
		scan.Languages[rel] = parser.Language()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// Run scans the repository and stores the name map in memory.
func (m *RepositoryMapper) Run(ctx context.Context) (*RepoScan, error) {
	scan, err := m.Scan(ctx)
	if err != nil {
		return nil, err
	}
	m.remember("repository_map", scan.Names())
	m.rt.log(m.name).Info("repository mapped", zap.Int("files", len(scan.Files)))
	return scan, nil
}

func (m *RepositoryMapper) skipDir(path string) bool {
	for _, dir := range m.rt.SkipDirs {
		if filepath.Clean(dir) == filepath.Clean(path) {
			return true
		}
	}
	return false
}
