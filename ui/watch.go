package ui

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

func (m *model) initWatcher() {
	var err error
	m.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		log.Error("error creating fsnotify watcher", "error", err)
		m.watcher = nil
		return
	}

	// Saves replace the file by rename, so watch the directory
	if err := m.watcher.Add(m.scriptDir()); err != nil {
		log.Error("error adding dir to fsnotify watcher", "error", err)
		_ = m.watcher.Close()
		m.watcher = nil
		return
	}
	log.Info("fsnotify watching dir", "dir", m.scriptDir())
}

func (m *model) watchFile() tea.Msg {
	target := m.scriptAbsPath()

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			return reloadMsg{}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "file", target, "error", err)
		}
	}
}

// reload replaces the script with the file's contents. Unsaved edits are
// never discarded, and a file that fails to parse leaves the script as is.
func (m *model) reload() tea.Cmd {
	data, err := os.ReadFile(m.cfg.ScriptPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return m.showStatus("Reload failed: "+err.Error(), true)
	}
	if bytes.Equal(data, m.lastSaved) {
		return nil
	}
	if m.store.Dirty() {
		return m.showStatus("Script changed on disk. Keeping unsaved edits", true)
	}

	if err := m.store.Load(data); err != nil {
		return m.showStatus("Reload failed: "+err.Error(), true)
	}
	m.lastSaved = data
	m.clampCursor()
	log.Info("reloaded script", "path", m.cfg.ScriptPath, "items", m.store.Len())
	return m.showStatus("Reloaded "+filepath.Base(m.cfg.ScriptPath), false)
}

func (m *model) scriptDir() string {
	return filepath.Dir(m.scriptAbsPath())
}

func (m *model) scriptAbsPath() string {
	p, err := filepath.Abs(m.cfg.ScriptPath)
	if err != nil {
		return filepath.Clean(m.cfg.ScriptPath)
	}
	return p
}
