package workflows

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"reel/internal/job"
	"reel/internal/logging"
	"reel/internal/registry"
	"reel/internal/services"
	"reel/internal/services/sora"
)

// VideoCreateRequest describes the create flow. Model, Seconds, and Size
// fall back to the configured defaults when zero.
type VideoCreateRequest struct {
	Prompt         string
	Model          string
	Seconds        int
	Size           string
	InputReference string
	Extra          map[string]any
	Poll           PollRequest
	Download       bool
	OutputDir      string
}

// VideoRetrieveRequest addresses a job by label or typed id; the label wins
// when both resolve.
type VideoRetrieveRequest struct {
	VideoID   string
	Label     string
	Poll      PollRequest
	Download  bool
	OutputDir string
}

// VideoRemixRequest derives a new render from a finished job.
type VideoRemixRequest struct {
	VideoID   string
	Label     string
	Prompt    string
	Poll      PollRequest
	Download  bool
	OutputDir string
}

// VideoDeleteRequest removes a job upstream and its local record.
type VideoDeleteRequest struct {
	VideoID string
	Label   string
}

// VideoDownloadRequest fetches finished content for a job.
type VideoDownloadRequest struct {
	VideoID   string
	Label     string
	OutputDir string
}

// CreateVideo submits a render, optionally polls it to a terminal status,
// records the snapshot, and downloads the clip when it completed. A poll
// that times out leaves no job file behind.
func (s *Service) CreateVideo(ctx context.Context, req VideoCreateRequest) (Outcome, error) {
	record, err := s.video.Create(ctx, sora.CreateRequest{
		Prompt:         req.Prompt,
		Model:          defaultString(req.Model, s.cfg.Video.Model),
		Seconds:        defaultInt(req.Seconds, s.cfg.Video.Seconds),
		Size:           defaultString(req.Size, s.cfg.Video.Size),
		InputReference: req.InputReference,
		Extra:          req.Extra,
	})
	if err != nil {
		return Outcome{}, err
	}
	videoID := record.ID()
	result := record
	if req.Poll.Enabled && videoID != "" {
		result, err = s.poller.UntilTerminal(ctx, videoID, s.pollOptions(req.Poll))
		if err != nil {
			return Outcome{Record: result}, err
		}
	}
	saved, err := s.jobs.Save(result)
	if err != nil {
		return Outcome{Record: result}, err
	}
	out := Outcome{Record: result, SavedFile: saved}
	if req.Download && videoID != "" && result.Status() == job.StatusCompleted {
		path, err := s.downloadToOutput(ctx, videoID, req.OutputDir)
		if err != nil {
			return out, err
		}
		out.VideoPath = path
	}
	s.log.Info("video create flow finished",
		logging.String("video_id", videoID),
		logging.String("status", string(result.Status())),
		logging.String("file", saved),
		logging.Bool("downloaded", out.VideoPath != ""))
	return out, nil
}

// RetrieveVideo fetches the current snapshot, optionally polls, then either
// saves a fresh job file (blank or Custom label) or rewrites the labeled
// one. Content downloads when the job completed and the caller asked.
func (s *Service) RetrieveVideo(ctx context.Context, req VideoRetrieveRequest) (Outcome, error) {
	videoID := s.jobs.ResolveID(req.Label, req.VideoID)
	if videoID == "" {
		return Outcome{}, services.Wrap(services.ErrInvalidArgument, "video retrieve", "video id required", nil)
	}
	result, err := s.video.Retrieve(ctx, videoID)
	if err != nil {
		return Outcome{}, err
	}
	if req.Poll.Enabled {
		result, err = s.poller.UntilTerminal(ctx, videoID, s.pollOptions(req.Poll))
		if err != nil {
			return Outcome{Record: result}, err
		}
	}
	out := Outcome{Record: result}
	label := strings.TrimSpace(req.Label)
	if label == "" || label == registry.LabelCustom {
		out.SavedFile, err = s.jobs.Save(result)
	} else {
		out.Updated, err = s.jobs.Update(label, result)
	}
	if err != nil {
		return out, err
	}
	if req.Download && result.Status() == job.StatusCompleted {
		path, err := s.downloadToOutput(ctx, videoID, req.OutputDir)
		if err != nil {
			return out, err
		}
		out.VideoPath = path
	}
	s.log.Info("video retrieve flow finished",
		logging.String("video_id", videoID),
		logging.String("status", string(result.Status())),
		logging.Bool("updated", out.Updated))
	return out, nil
}

// RemixVideo derives a new render from a finished job and polls and
// downloads like create does. The snapshot is recorded last, after the
// download, so a failed download leaves no job file.
func (s *Service) RemixVideo(ctx context.Context, req VideoRemixRequest) (Outcome, error) {
	sourceID := s.jobs.ResolveID(req.Label, req.VideoID)
	if sourceID == "" {
		return Outcome{}, services.Wrap(services.ErrInvalidArgument, "video remix", "video id required", nil)
	}
	record, err := s.video.Remix(ctx, sourceID, req.Prompt)
	if err != nil {
		return Outcome{}, err
	}
	// Remix responses may omit an id; polling then falls back to the source.
	videoID := record.ID()
	if videoID == "" {
		videoID = sourceID
	}
	result := record
	if req.Poll.Enabled {
		result, err = s.poller.UntilTerminal(ctx, videoID, s.pollOptions(req.Poll))
		if err != nil {
			return Outcome{Record: result}, err
		}
	}
	out := Outcome{Record: result}
	if req.Download && result.Status() == job.StatusCompleted {
		path, err := s.downloadToOutput(ctx, videoID, req.OutputDir)
		if err != nil {
			return out, err
		}
		out.VideoPath = path
	}
	out.SavedFile, err = s.jobs.Save(result)
	if err != nil {
		return out, err
	}
	s.log.Info("video remix flow finished",
		logging.String("source_id", sourceID),
		logging.String("video_id", videoID),
		logging.String("status", string(result.Status())))
	return out, nil
}

// DeleteVideo removes the job upstream first; only a successful remote
// delete touches the local registry.
func (s *Service) DeleteVideo(ctx context.Context, req VideoDeleteRequest) (Outcome, error) {
	videoID := s.jobs.ResolveID(req.Label, req.VideoID)
	if videoID == "" {
		return Outcome{}, services.Wrap(services.ErrInvalidArgument, "video delete", "video id required", nil)
	}
	receipt, err := s.video.Delete(ctx, videoID)
	if err != nil {
		return Outcome{}, err
	}
	removed, err := s.jobs.Delete(req.Label, videoID)
	if err != nil {
		return Outcome{Record: receipt}, err
	}
	s.log.Info("video delete flow finished",
		logging.String("video_id", videoID),
		logging.String("file", removed))
	return Outcome{Record: receipt, DeletedFile: removed}, nil
}

// DownloadVideo fetches the rendered clip for a job without touching the
// registry. Unlike the flag on the other flows it does not gate on status;
// asking for an unfinished job surfaces the API's error.
func (s *Service) DownloadVideo(ctx context.Context, req VideoDownloadRequest) (Outcome, error) {
	videoID := s.jobs.ResolveID(req.Label, req.VideoID)
	if videoID == "" {
		return Outcome{}, services.Wrap(services.ErrInvalidArgument, "video download", "video id required", nil)
	}
	path, err := s.downloadToOutput(ctx, videoID, req.OutputDir)
	if err != nil {
		return Outcome{}, err
	}
	s.log.Info("video downloaded",
		logging.String("video_id", videoID),
		logging.String("path", path))
	return Outcome{VideoPath: path}, nil
}

// StreamVideoContent copies the rendered clip into w instead of the output
// directory, for callers that relay the bytes elsewhere. Like DownloadVideo
// it does not gate on status.
func (s *Service) StreamVideoContent(ctx context.Context, label, videoID string, w io.Writer) (int64, error) {
	id := s.jobs.ResolveID(label, videoID)
	if id == "" {
		return 0, services.Wrap(services.ErrInvalidArgument, "video download", "video id required", nil)
	}
	return s.video.DownloadContent(ctx, id, w)
}

func (s *Service) downloadToOutput(ctx context.Context, videoID, outputDir string) (string, error) {
	dir := defaultString(outputDir, s.cfg.Paths.OutputDir)
	path := filepath.Join(dir, videoID+".mp4")
	if _, err := s.video.DownloadToFile(ctx, videoID, path); err != nil {
		return "", err
	}
	return path, nil
}
