package executor

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/storage"
)

// UploadArtifactExecutor 内置 upload-artifact 动作
// 将工作目录中的文件或目录上传到制品存储 <run-id>/<stage>/<name>
type UploadArtifactExecutor struct {
	store  storage.StorageProvider
	logger log.Logger
}

func NewUploadArtifactExecutor(store storage.StorageProvider, logger log.Logger) *UploadArtifactExecutor {
	return &UploadArtifactExecutor{store: store, logger: logger}
}

func (e *UploadArtifactExecutor) Name() string {
	return pipeline.BuiltinUploadArtifact
}

func (e *UploadArtifactExecutor) CanExecute(req *ExecutionRequest) bool {
	return req != nil && req.Step != nil && req.Step.Uses == pipeline.BuiltinUploadArtifact
}

func (e *UploadArtifactExecutor) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error) {
	result := NewExecutionResult(e.Name())

	if e.store == nil {
		err := fmt.Errorf("%w: no artifact store configured", ErrStepFailed)
		result.Complete(false, -1, err)
		return result, err
	}

	rel := filepath.Clean(req.Step.With["path"])
	if rel == "." || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		err := fmt.Errorf("%w: path must be relative to the workspace: %q", ErrStepFailed, req.Step.With["path"])
		result.Complete(false, -1, err)
		return result, err
	}
	src := filepath.Join(req.Workspace, rel)

	name := req.Step.With["name"]
	if name == "" {
		name = filepath.Base(rel)
	}
	prefix := path.Join(req.RunID, req.Stage, name)

	var keys []string
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		key := prefix
		if p != src {
			sub, err := filepath.Rel(src, p)
			if err != nil {
				return err
			}
			key = path.Join(prefix, filepath.ToSlash(sub))
		}
		stored, err := storage.UploadFile(ctx, e.store, key, p, mime.TypeByExtension(filepath.Ext(p)))
		if err != nil {
			return err
		}
		keys = append(keys, stored)
		return nil
	})
	if err != nil {
		err = fmt.Errorf("%w: upload %s: %v", ErrStepFailed, rel, err)
		result.Complete(false, -1, err)
		return result, err
	}

	result.Outputs["artifact_path"] = prefix
	result.Outputs["artifact_files"] = strconv.Itoa(len(keys))
	result.Output = strings.Join(keys, "\n")
	result.Complete(true, 0, nil)

	if e.logger.Log != nil {
		e.logger.Log.Infow("artifact uploaded", "run_id", req.RunID, "stage", req.Stage, "artifact", prefix, "files", len(keys))
	}
	return result, nil
}
