// internal/importer/buffers.go
package importer

import "github-repo-analytics/internal/database"

// buffers holds rows staged between flushes. Edge rows are appended as they
// come, duplicates included; repository patches are keyed by id so a later
// record for the same repository replaces the earlier patch.
type buffers struct {
	repoLanguages []database.RepoLanguage
	repoTopics    []database.RepoTopic
	updateIndex   map[int64]int
	repoUpdates   []database.UpdateRepositoryParams
}

func newBuffers() *buffers {
	return &buffers{updateIndex: make(map[int64]int)}
}

func (b *buffers) stageUpdate(u database.UpdateRepositoryParams) {
	if i, ok := b.updateIndex[u.ID]; ok {
		b.repoUpdates[i] = u
		return
	}
	b.updateIndex[u.ID] = len(b.repoUpdates)
	b.repoUpdates = append(b.repoUpdates, u)
}

func (b *buffers) stagedUpdate(id int64) (database.UpdateRepositoryParams, bool) {
	i, ok := b.updateIndex[id]
	if !ok {
		return database.UpdateRepositoryParams{}, false
	}
	return b.repoUpdates[i], true
}

func (b *buffers) updates() []database.UpdateRepositoryParams {
	return b.repoUpdates
}

func (b *buffers) full(cfg BatchConfig) bool {
	return len(b.repoLanguages) >= cfg.RepoLanguages ||
		len(b.repoTopics) >= cfg.RepoTopics ||
		len(b.repoUpdates) >= cfg.RepoUpdates
}

func (b *buffers) empty() bool {
	return len(b.repoLanguages) == 0 && len(b.repoTopics) == 0 && len(b.repoUpdates) == 0
}

func (b *buffers) reset() {
	b.repoLanguages = nil
	b.repoTopics = nil
	b.repoUpdates = nil
	clear(b.updateIndex)
}
