package graph

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// pointFile is the on-disk YAML shape of a knowledge point.
type pointFile struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	SubjectID     string   `yaml:"subject_id"`
	ChapterID     string   `yaml:"chapter_id"`
	Difficulty    string   `yaml:"difficulty"`
	Prerequisites []string `yaml:"prerequisites"`
}

// Loader loads knowledge-point content from the filesystem and serves
// per-subject arena stores.
type Loader struct {
	rootDir  string
	subjects map[string][]KnowledgePoint
	mu       sync.RWMutex
}

// NewLoader creates a loader and reads all content under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir:  rootDir,
		subjects: make(map[string][]KnowledgePoint),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading knowledge graph: %w", err)
	}

	total := 0
	for _, pts := range l.subjects {
		total += len(pts)
	}
	slog.Info("knowledge graph loaded", "subjects", len(l.subjects), "points", total)
	return l, nil
}

// SubjectIDs returns all subject ids with at least one loaded point.
func (l *Loader) SubjectIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.subjects))
	for id := range l.subjects {
		ids = append(ids, id)
	}
	return ids
}

// SubjectGraph builds the arena store for one subject.
func (l *Loader) SubjectGraph(subjectID string) (*Store, error) {
	l.mu.RLock()
	points, ok := l.subjects[subjectID]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown subject %q", subjectID)
	}
	return NewStore(points)
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		if strings.HasSuffix(path, ".questions.yaml") || strings.HasSuffix(path, ".rules.yaml") {
			return nil // question banks and rule files have their own loaders
		}
		return l.loadPoint(path)
	})
}

func (l *Loader) loadPoint(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var pf pointFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		slog.Warn("skipping invalid knowledge point YAML", "path", path, "error", err)
		return nil
	}

	if pf.ID == "" || pf.SubjectID == "" {
		return nil // Not a knowledge point file
	}

	diff, err := ParseDifficulty(pf.Difficulty)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	l.mu.Lock()
	l.subjects[pf.SubjectID] = append(l.subjects[pf.SubjectID], KnowledgePoint{
		ID:            pf.ID,
		Name:          pf.Name,
		SubjectID:     pf.SubjectID,
		ChapterID:     pf.ChapterID,
		Difficulty:    diff,
		Prerequisites: pf.Prerequisites,
	})
	l.mu.Unlock()

	return nil
}
