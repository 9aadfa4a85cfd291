// Package store persists per-player state as JSON files under one data
// directory:
//
//	<dir>/<uid>/player_info.json
//	<dir>/<uid>/raw_snapshot.json
//	<dir>/<uid>/<short_name>.json
//	<dir>/<uid>/artifacts.json
//	<dir>/<uid>/rank.json
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"showcase-tracker/internal/catalogue"
	"showcase-tracker/internal/domain"
)

const (
	playerInfoFile  = "player_info.json"
	rawSnapshotFile = "raw_snapshot.json"
	catalogueFile   = "artifacts.json"
	rankFile        = "rank.json"
)

// ErrNotFound is returned when a requested file has never been written.
var ErrNotFound = errors.New("store: not found")

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) playerDir(uid string) (string, error) {
	if uid == "" || strings.ContainsAny(uid, `/\`) || uid == "." || uid == ".." {
		return "", fmt.Errorf("invalid player id %q", uid)
	}
	return filepath.Join(s.dir, uid), nil
}

func (s *Store) path(uid, name string) (string, error) {
	dir, err := s.playerDir(uid)
	if err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(dir, name), nil
}

// SavePlayerInfo writes the raw playerInfo block.
func (s *Store) SavePlayerInfo(uid string, raw []byte) error {
	return s.writeRaw(uid, playerInfoFile, raw)
}

// SaveRawSnapshot writes the whole upstream document.
func (s *Store) SaveRawSnapshot(uid string, raw []byte) error {
	return s.writeRaw(uid, rawSnapshotFile, raw)
}

func (s *Store) LoadRawSnapshot(uid string) ([]byte, error) {
	p, err := s.path(uid, rawSnapshotFile)
	if err != nil {
		return nil, err
	}
	return readFile(p)
}

func (s *Store) SaveCharacter(uid, shortName string, rec domain.CharacterRecord) error {
	p, err := s.path(uid, shortName+".json")
	if err != nil {
		return err
	}
	return writeJSONFileAtomic(p, rec)
}

func (s *Store) LoadCharacter(uid, shortName string) (domain.CharacterRecord, error) {
	var rec domain.CharacterRecord
	p, err := s.path(uid, shortName+".json")
	if err != nil {
		return rec, err
	}
	err = readJSONFile(p, &rec)
	return rec, err
}

// LoadCatalogue returns the stored catalogue, or an empty one when the
// player has none yet.
func (s *Store) LoadCatalogue(uid string) (*domain.Catalogue, error) {
	p, err := s.path(uid, catalogueFile)
	if err != nil {
		return nil, err
	}
	var c domain.Catalogue
	if err := readJSONFile(p, &c); err != nil {
		if errors.Is(err, ErrNotFound) {
			return catalogue.New(), nil
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) SaveCatalogue(uid string, c *domain.Catalogue) error {
	p, err := s.path(uid, catalogueFile)
	if err != nil {
		return err
	}
	return writeJSONFileAtomic(p, c)
}

// LoadRank returns ranking entries keyed by ranking id. A missing file is an
// empty map.
func (s *Store) LoadRank(uid string) (map[string]domain.RankEntry, error) {
	p, err := s.path(uid, rankFile)
	if err != nil {
		return nil, err
	}
	rank := map[string]domain.RankEntry{}
	if err := readJSONFile(p, &rank); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return rank, nil
}

func (s *Store) SaveRank(uid string, rank map[string]domain.RankEntry) error {
	p, err := s.path(uid, rankFile)
	if err != nil {
		return err
	}
	return writeJSONFileAtomic(p, rank)
}

func (s *Store) writeRaw(uid, name string, raw []byte) error {
	p, err := s.path(uid, name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	buf.WriteByte('\n')
	return writeFileAtomic(p, buf.Bytes(), 0o644)
}

func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNotFound)
	}
	return b, err
}

func readJSONFile(path string, v any) error {
	b, err := readFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
