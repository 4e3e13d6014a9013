package assistant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mnemos-ai/mnemos/src/cache"
	"github.com/mnemos-ai/mnemos/src/memory"
	"github.com/mnemos-ai/mnemos/src/models"
)

// persistInteraction stores the question/answer pair so future retrievals
// can surface it, then invalidates the question's cached retrieval result.
// Failures are logged and swallowed; persistence must never break an answer
// that was already generated.
func (a *Assistant) persistInteraction(ctx context.Context, req Request, answer string) {
	if a.store == nil {
		return
	}

	ts := a.now().UTC().Format(memory.TimestampLayout)
	fingerprint := cache.Fingerprint(req.Question)
	id := fmt.Sprintf("interaction_%s_%s", ts, fingerprint[:12])

	metadata := map[string]string{
		"type":        memory.TypeInteraction,
		"timestamp":   ts,
		"used_memory": strconv.FormatBool(req.UseMemory),
		"used_search": strconv.FormatBool(req.UseSearch),
	}
	if req.Personality != "" {
		metadata["personality"] = req.Personality
	}
	if refs := a.storeAttachments(req.Images); len(refs) > 0 {
		metadata["attachments"] = strings.Join(refs, ",")
	}

	text := fmt.Sprintf("Q: %s\nA: %s", req.Question, answer)
	if err := a.store.Upsert(ctx, id, text, metadata); err != nil {
		a.logger.Printf("persist interaction %s: %v", id, err)
		return
	}

	// The cached retrieval snapshot for this question is now stale.
	if a.merger != nil {
		a.merger.Invalidate(req.Question)
	}
}

// storeAttachments writes uploaded images to the attachment directory under
// collision-free names and returns their paths. A file that fails to write
// is logged and dropped from the references.
func (a *Assistant) storeAttachments(images []models.File) []string {
	if a.attachmentDir == "" || len(images) == 0 {
		return nil
	}
	if err := os.MkdirAll(a.attachmentDir, 0o755); err != nil {
		a.logger.Printf("attachment dir %s: %v", a.attachmentDir, err)
		return nil
	}

	var refs []string
	for _, img := range images {
		ext := filepath.Ext(img.Name)
		name := uuid.NewString() + ext
		path := filepath.Join(a.attachmentDir, name)
		if err := os.WriteFile(path, img.Data, 0o644); err != nil {
			a.logger.Printf("store attachment %s: %v", img.Name, err)
			continue
		}
		refs = append(refs, path)
	}
	return refs
}
