package runner

import (
	"context"

	"rowsynth/internal/report"
	"rowsynth/internal/util"
)

// finish writes the summary, archive and upload for a dataset. runErr is
// recorded in the summary and returned unchanged.
func (r *Runner) finish(ctx context.Context, d report.Dataset, summary report.Summary, runErr error) (Result, error) {
	if runErr != nil {
		summary.Error = runErr.Error()
		util.Errorf("run failed: %v", runErr)
	}
	res := Result{Summary: summary, Dataset: d}
	if d.Dir == "" {
		return res, runErr
	}
	r.writeSummary(d, summary)
	if r.cfg.Output.Archive {
		name, codec, err := r.reporter.WriteArchive(d)
		if err != nil {
			util.Warnf("write archive dir=%s err=%v", d.Dir, err)
		} else {
			summary.ArchiveName = name
			summary.ArchiveCodec = codec
			r.writeSummary(d, summary)
		}
	}
	if r.uploader.Enabled() {
		location, err := r.uploader.UploadDir(ctx, d.Dir)
		if err != nil {
			util.Warnf("upload failed dir=%s err=%v", d.Dir, err)
		} else {
			summary.UploadLocation = location
			r.writeSummary(d, summary)
			util.Infof("uploaded dataset to %s", location)
		}
	}
	res.Summary = summary
	util.Highlightf("dataset %s written to %s", d.ID, d.Dir)
	return res, runErr
}

func (r *Runner) writeSummary(d report.Dataset, summary report.Summary) {
	if err := r.reporter.WriteSummary(d, summary); err != nil {
		util.Warnf("write summary dir=%s err=%v", d.Dir, err)
	}
}
