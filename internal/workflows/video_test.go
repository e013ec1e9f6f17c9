package workflows_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reel/internal/job"
	"reel/internal/poll"
	"reel/internal/services"
	"reel/internal/services/sora"
	"reel/internal/testsupport"
	"reel/internal/workflows"
)

type fakeVideoClient struct {
	createResp  job.Record
	createErr   error
	createReqs  []sora.CreateRequest
	retrieveSeq []job.Record
	retrieveErr error
	retrieves   int
	remixResp   job.Record
	remixErr    error
	remixedFrom []string
	deleteResp  job.Record
	deleteErr   error
	deletedIDs  []string
	downloadErr error
	downloads   []string
}

func (f *fakeVideoClient) Create(ctx context.Context, req sora.CreateRequest) (job.Record, error) {
	f.createReqs = append(f.createReqs, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResp.Clone(), nil
}

func (f *fakeVideoClient) Retrieve(ctx context.Context, videoID string) (job.Record, error) {
	f.retrieves++
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	idx := f.retrieves - 1
	if idx >= len(f.retrieveSeq) {
		idx = len(f.retrieveSeq) - 1
	}
	return f.retrieveSeq[idx].Clone(), nil
}

func (f *fakeVideoClient) Remix(ctx context.Context, videoID, prompt string) (job.Record, error) {
	f.remixedFrom = append(f.remixedFrom, videoID)
	if f.remixErr != nil {
		return nil, f.remixErr
	}
	return f.remixResp.Clone(), nil
}

func (f *fakeVideoClient) Delete(ctx context.Context, videoID string) (job.Record, error) {
	f.deletedIDs = append(f.deletedIDs, videoID)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return f.deleteResp.Clone(), nil
}

func (f *fakeVideoClient) DownloadContent(ctx context.Context, videoID string, w io.Writer) (int64, error) {
	if f.downloadErr != nil {
		return 0, f.downloadErr
	}
	f.downloads = append(f.downloads, videoID)
	n, err := w.Write([]byte("mp4!"))
	return int64(n), err
}

func (f *fakeVideoClient) DownloadToFile(ctx context.Context, videoID, path string) (int64, error) {
	if f.downloadErr != nil {
		return 0, f.downloadErr
	}
	f.downloads = append(f.downloads, videoID)
	return 4, nil
}

func newVideoService(t *testing.T, fake *fakeVideoClient) *workflows.Service {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	svc, err := workflows.NewService(cfg,
		workflows.WithVideoClient(fake),
		workflows.WithPoller(poll.New(fake, poll.WithSleeper(func(time.Duration) {}))))
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func TestCreateVideoPollsSavesAndDownloads(t *testing.T) {
	fake := &fakeVideoClient{
		createResp: job.Record{"id": "video_1", "status": "queued"},
		retrieveSeq: []job.Record{
			{"id": "video_1", "status": "in_progress"},
			{"id": "video_1", "status": "completed"},
		},
	}
	svc := newVideoService(t, fake)

	out, err := svc.CreateVideo(context.Background(), workflows.VideoCreateRequest{
		Prompt:   "a tide pool at dawn",
		Poll:     workflows.PollRequest{Enabled: true},
		Download: true,
	})
	if err != nil {
		t.Fatalf("CreateVideo returned error: %v", err)
	}
	if got := fake.createReqs[0].Model; got != "sora-2" {
		t.Fatalf("expected configured default model, got %q", got)
	}
	if out.Record.Status() != job.StatusCompleted {
		t.Fatalf("expected polled snapshot, got %q", out.Record.Status())
	}
	if out.SavedFile == "" {
		t.Fatal("expected a saved job file")
	}
	saved, err := svc.ShowJob(out.SavedFile)
	if err != nil {
		t.Fatalf("ShowJob returned error: %v", err)
	}
	if saved.Status() != job.StatusCompleted {
		t.Fatalf("expected saved file to hold the polled state, got %q", saved.Status())
	}
	wantPath := filepath.Join(svc.Config().Paths.OutputDir, "video_1.mp4")
	if out.VideoPath != wantPath {
		t.Fatalf("expected download at %q, got %q", wantPath, out.VideoPath)
	}
	if len(fake.downloads) != 1 || fake.downloads[0] != "video_1" {
		t.Fatalf("unexpected downloads %v", fake.downloads)
	}
}

func TestCreateVideoWithoutPollSkipsDownloadForUnfinishedJob(t *testing.T) {
	fake := &fakeVideoClient{
		createResp: job.Record{"id": "video_1", "status": "queued"},
	}
	svc := newVideoService(t, fake)

	out, err := svc.CreateVideo(context.Background(), workflows.VideoCreateRequest{
		Prompt:   "demo",
		Download: true,
	})
	if err != nil {
		t.Fatalf("CreateVideo returned error: %v", err)
	}
	if out.VideoPath != "" || len(fake.downloads) != 0 {
		t.Fatalf("expected no download for a queued job, got %q %v", out.VideoPath, fake.downloads)
	}
	if out.SavedFile == "" {
		t.Fatal("expected the queued snapshot to be saved")
	}
}

func TestCreateVideoPollTimeoutLeavesNoJobFile(t *testing.T) {
	fake := &fakeVideoClient{
		createResp:  job.Record{"id": "video_1", "status": "queued"},
		retrieveSeq: []job.Record{{"id": "video_1", "status": "in_progress"}},
	}
	cfg := testsupport.NewConfig(t)
	var elapsed time.Duration
	base := time.Unix(1700000000, 0)
	poller := poll.New(fake,
		poll.WithClock(func() time.Time { return base.Add(elapsed) }),
		poll.WithSleeper(func(d time.Duration) { elapsed += d }))
	svc, err := workflows.NewService(cfg,
		workflows.WithVideoClient(fake),
		workflows.WithPoller(poller))
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	_, err = svc.CreateVideo(context.Background(), workflows.VideoCreateRequest{
		Prompt: "demo",
		Poll:   workflows.PollRequest{Enabled: true, Interval: 5 * time.Second, Timeout: 8 * time.Second},
	})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	entries, err := svc.ListJobs()
	if err != nil {
		t.Fatalf("ListJobs returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no job file after a timeout, got %v", entries)
	}
}

func TestCreateVideoFailedDownloadStillLeavesJobFile(t *testing.T) {
	fake := &fakeVideoClient{
		createResp:  job.Record{"id": "video_1", "status": "completed"},
		downloadErr: &services.RemoteError{Op: "sora download", StatusCode: 500, Body: "boom"},
	}
	svc := newVideoService(t, fake)

	out, err := svc.CreateVideo(context.Background(), workflows.VideoCreateRequest{
		Prompt:   "demo",
		Download: true,
	})
	if err == nil {
		t.Fatal("expected download failure to surface")
	}
	if out.SavedFile == "" {
		t.Fatal("expected the job file to exist despite the failed download")
	}
	entries, _ := svc.ListJobs()
	if len(entries) != 1 {
		t.Fatalf("expected one job file, got %v", entries)
	}
}

func TestRetrieveVideoUpdatesLabeledFile(t *testing.T) {
	fake := &fakeVideoClient{
		retrieveSeq: []job.Record{{"id": "video_9", "status": "completed"}},
	}
	svc := newVideoService(t, fake)
	store := testsupport.MustOpenRegistry(t, svc.Config())
	name := testsupport.SaveJob(t, store, job.Record{"id": "video_9", "status": "queued"})
	label := name + " | video_9 | queued"

	out, err := svc.RetrieveVideo(context.Background(), workflows.VideoRetrieveRequest{
		Label: label,
	})
	if err != nil {
		t.Fatalf("RetrieveVideo returned error: %v", err)
	}
	if !out.Updated || out.SavedFile != "" {
		t.Fatalf("expected an in-place update, got %+v", out)
	}
	entries, err := svc.ListJobs()
	if err != nil {
		t.Fatalf("ListJobs returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected update to reuse the job file, got %v", entries)
	}
	updated, err := svc.ShowJob(name)
	if err != nil {
		t.Fatalf("ShowJob returned error: %v", err)
	}
	if updated.Status() != job.StatusCompleted {
		t.Fatalf("expected refreshed status, got %q", updated.Status())
	}
}

func TestRetrieveVideoSavesFreshFileForCustomLabel(t *testing.T) {
	fake := &fakeVideoClient{
		retrieveSeq: []job.Record{{"id": "video_7", "status": "completed"}},
	}
	svc := newVideoService(t, fake)

	out, err := svc.RetrieveVideo(context.Background(), workflows.VideoRetrieveRequest{
		VideoID: "video_7",
		Label:   "Custom",
	})
	if err != nil {
		t.Fatalf("RetrieveVideo returned error: %v", err)
	}
	if out.SavedFile == "" || out.Updated {
		t.Fatalf("expected a fresh save, got %+v", out)
	}
}

func TestRetrieveVideoRequiresResolvableID(t *testing.T) {
	svc := newVideoService(t, &fakeVideoClient{})
	_, err := svc.RetrieveVideo(context.Background(), workflows.VideoRetrieveRequest{Label: "Custom"})
	if !errors.Is(err, services.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument error, got %v", err)
	}
}

func TestRemixVideoSavesAfterDownload(t *testing.T) {
	fake := &fakeVideoClient{
		remixResp: job.Record{"id": "video_2", "status": "completed", "remixed_from_video_id": "video_1"},
	}
	svc := newVideoService(t, fake)
	store := testsupport.MustOpenRegistry(t, svc.Config())
	name := testsupport.SaveJob(t, store, job.Record{"id": "video_1", "status": "completed"})

	out, err := svc.RemixVideo(context.Background(), workflows.VideoRemixRequest{
		Label:    name + " | video_1 | completed",
		Prompt:   "slower pan",
		Download: true,
	})
	if err != nil {
		t.Fatalf("RemixVideo returned error: %v", err)
	}
	if len(fake.remixedFrom) != 1 || fake.remixedFrom[0] != "video_1" {
		t.Fatalf("expected remix from resolved source id, got %v", fake.remixedFrom)
	}
	if out.SavedFile == "" || out.VideoPath == "" {
		t.Fatalf("expected save and download, got %+v", out)
	}
	if len(fake.downloads) != 1 || fake.downloads[0] != "video_2" {
		t.Fatalf("expected the remix id to download, got %v", fake.downloads)
	}
}

func TestRemixVideoFailedDownloadLeavesNoJobFile(t *testing.T) {
	fake := &fakeVideoClient{
		remixResp:   job.Record{"id": "video_2", "status": "completed"},
		downloadErr: &services.RemoteError{Op: "sora download", StatusCode: 500, Body: "boom"},
	}
	svc := newVideoService(t, fake)

	_, err := svc.RemixVideo(context.Background(), workflows.VideoRemixRequest{
		VideoID:  "video_1",
		Prompt:   "slower pan",
		Download: true,
	})
	if err == nil {
		t.Fatal("expected download failure to surface")
	}
	entries, _ := svc.ListJobs()
	if len(entries) != 0 {
		t.Fatalf("expected no job file when the remix download fails, got %v", entries)
	}
}

func TestDeleteVideoKeepsLocalFileWhenRemoteFails(t *testing.T) {
	fake := &fakeVideoClient{
		deleteErr: &services.RemoteError{Op: "sora delete", StatusCode: 404, Body: "gone"},
	}
	svc := newVideoService(t, fake)
	store := testsupport.MustOpenRegistry(t, svc.Config())
	name := testsupport.SaveJob(t, store, job.Record{"id": "video_9", "status": "completed"})

	_, err := svc.DeleteVideo(context.Background(), workflows.VideoDeleteRequest{VideoID: "video_9"})
	if err == nil {
		t.Fatal("expected remote delete failure to surface")
	}
	entries, _ := svc.ListJobs()
	if len(entries) != 1 || entries[0].Filename != name {
		t.Fatalf("expected local file untouched, got %v", entries)
	}

	fake.deleteErr = nil
	fake.deleteResp = job.Record{"id": "video_9", "deleted": true}
	out, err := svc.DeleteVideo(context.Background(), workflows.VideoDeleteRequest{VideoID: "video_9"})
	if err != nil {
		t.Fatalf("DeleteVideo returned error: %v", err)
	}
	if out.DeletedFile != name {
		t.Fatalf("expected %q deleted, got %q", name, out.DeletedFile)
	}
	entries, _ = svc.ListJobs()
	if len(entries) != 0 {
		t.Fatalf("expected no job files left, got %v", entries)
	}
}

func TestDownloadVideoResolvesLabel(t *testing.T) {
	fake := &fakeVideoClient{}
	svc := newVideoService(t, fake)
	store := testsupport.MustOpenRegistry(t, svc.Config())
	name := testsupport.SaveJob(t, store, job.Record{"id": "video_5", "status": "completed"})

	out, err := svc.DownloadVideo(context.Background(), workflows.VideoDownloadRequest{
		Label: name + " | video_5 | completed",
	})
	if err != nil {
		t.Fatalf("DownloadVideo returned error: %v", err)
	}
	wantPath := filepath.Join(svc.Config().Paths.OutputDir, "video_5.mp4")
	if out.VideoPath != wantPath {
		t.Fatalf("expected %q, got %q", wantPath, out.VideoPath)
	}
	if len(fake.downloads) != 1 || fake.downloads[0] != "video_5" {
		t.Fatalf("unexpected downloads %v", fake.downloads)
	}
}

func TestStreamVideoContentWritesToCaller(t *testing.T) {
	fake := &fakeVideoClient{}
	svc := newVideoService(t, fake)

	var sink strings.Builder
	written, err := svc.StreamVideoContent(context.Background(), "", "video_5", &sink)
	if err != nil {
		t.Fatalf("StreamVideoContent returned error: %v", err)
	}
	if written != 4 || sink.String() != "mp4!" {
		t.Fatalf("unexpected stream result %d %q", written, sink.String())
	}

	if _, err := svc.StreamVideoContent(context.Background(), "Custom", "", io.Discard); !errors.Is(err, services.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument without an id, got %v", err)
	}
}
