package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"rowsynth/internal/config"
	"rowsynth/internal/report"
	"rowsynth/internal/uploader"
	"rowsynth/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

const (
	manifestName      = "datasets.json"
	indexName         = "datasets.index.json"
	manifestVersion   = 1
	datasetSummaryDir = "datasets"
)

// FileContent holds an inlined, possibly truncated, dataset file.
type FileContent struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

// DatasetEntry is one dataset in the manifest.
type DatasetEntry struct {
	ID             string         `json:"id"`
	Dir            string         `json:"dir"`
	Timestamp      string         `json:"timestamp"`
	Profile        string         `json:"profile"`
	Description    string         `json:"description"`
	Fields         []string       `json:"fields"`
	Format         string         `json:"format"`
	Table          string         `json:"table"`
	Seed           int64          `json:"seed"`
	DataType       string         `json:"data_type"`
	Walker         string         `json:"walker"`
	Rows           int            `json:"rows"`
	RowSpecs       int            `json:"row_specs"`
	Duplicates     int            `json:"duplicates"`
	Infeasible     bool           `json:"infeasible"`
	ElapsedMS      int64          `json:"elapsed_ms"`
	Error          string         `json:"error"`
	ArchiveName    string         `json:"archive_name"`
	ArchiveCodec   string         `json:"archive_codec"`
	ArchiveURL     string         `json:"archive_url"`
	SummaryURL     string         `json:"summary_url"`
	UploadLocation string         `json:"upload_location"`
	Details        map[string]any `json:"details"`
	Preview        *FileContent   `json:"preview,omitempty"`
}

// Manifest is the full JSON payload.
type Manifest struct {
	Version      int            `json:"version"`
	GeneratedAt  string         `json:"generated_at"`
	Source       string         `json:"source"`
	DatasetCount int            `json:"dataset_count"`
	TotalRows    int            `json:"total_rows"`
	Datasets     []DatasetEntry `json:"datasets"`
}

// IndexEntry is the slim per-dataset record of the index file.
type IndexEntry struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	Profile    string `json:"profile"`
	Rows       int    `json:"rows"`
	Infeasible bool   `json:"infeasible"`
	Error      string `json:"error"`
	SummaryURL string `json:"summary_url"`
}

// Index lists datasets without their details.
type Index struct {
	Version      int          `json:"version"`
	GeneratedAt  string       `json:"generated_at"`
	DatasetCount int          `json:"dataset_count"`
	Datasets     []IndexEntry `json:"datasets"`
}

type loadOptions struct {
	MaxBytes              int
	ArtifactPublicBaseURL string
}

type publishOptions struct {
	S3            config.S3Config
	PublicBaseURL string
}

type notifyOptions struct {
	Endpoint string
	Token    string
}

func main() {
	input := flag.String("input", "datasets", "input directory or s3://bucket/prefix")
	output := flag.String("output", "web/public", "output directory for the manifest files")
	configPath := flag.String("config", "config.yaml", "path to config file (for S3 access)")
	maxBytes := flag.Int("max-bytes", 16*1024, "max bytes of each data file to inline as a preview")
	publishEndpoint := flag.String("publish-endpoint", "", "S3-compatible endpoint for publishing manifests")
	publishRegion := flag.String("publish-region", "auto", "region for publish endpoint")
	publishBucket := flag.String("publish-bucket", "", "target bucket for publishing manifests")
	publishPrefix := flag.String("publish-prefix", "", "target prefix for publishing manifests")
	publishAccessKey := flag.String("publish-access-key-id", "", "access key for publishing manifests")
	publishSecret := flag.String("publish-secret-access-key", "", "secret key for publishing manifests")
	publishUsePathStyle := flag.Bool("publish-use-path-style", true, "whether to use path-style S3 addressing for publish endpoint")
	publishPublicBaseURL := flag.String("publish-public-base-url", "", "public base URL for published manifests")
	artifactPublicBaseURL := flag.String("artifact-public-base-url", "", "public HTTP(S) base URL used to derive summary/archive links from upload locations")
	notifyEndpoint := flag.String("notify-endpoint", "", "endpoint that receives the index as a JSON POST")
	notifyToken := flag.String("notify-token", "", "bearer token for the notify endpoint")
	flag.Parse()

	opts := loadOptions{MaxBytes: *maxBytes, ArtifactPublicBaseURL: strings.TrimSpace(*artifactPublicBaseURL)}
	ctx := context.Background()

	var datasets []DatasetEntry
	var err error
	if strings.HasPrefix(*input, "s3://") {
		cfg, loadErr := config.Load(*configPath)
		if loadErr != nil {
			fail("load config: %v", loadErr)
		}
		if !cfg.Storage.S3.Enabled {
			fail("s3 input requested but storage.s3.enabled is false")
		}
		bucket, prefix, parseErr := parseBucketURI(*input)
		if parseErr != nil {
			fail("parse s3 input: %v", parseErr)
		}
		datasets, err = loadS3Datasets(ctx, cfg.Storage.S3, bucket, prefix, opts)
	} else {
		datasets, err = loadLocalDatasets(*input, opts)
	}
	if err != nil {
		fail("load datasets: %v", err)
	}

	manifest := buildManifest(*input, time.Now(), datasets)
	if err := writeOutputs(*output, manifest); err != nil {
		fail("write outputs: %v", err)
	}

	publishCfg := publishOptions{
		S3: config.S3Config{
			Enabled:         strings.TrimSpace(*publishBucket) != "",
			Endpoint:        strings.TrimSpace(*publishEndpoint),
			Region:          strings.TrimSpace(*publishRegion),
			Bucket:          strings.TrimSpace(*publishBucket),
			Prefix:          strings.TrimSpace(*publishPrefix),
			AccessKeyID:     strings.TrimSpace(*publishAccessKey),
			SecretAccessKey: strings.TrimSpace(*publishSecret),
			UsePathStyle:    *publishUsePathStyle,
		},
		PublicBaseURL: strings.TrimSpace(*publishPublicBaseURL),
	}
	manifestURL, err := publishManifests(ctx, publishCfg, *output)
	if err != nil {
		fail("publish manifests: %v", err)
	}
	if manifestURL != "" {
		fmt.Printf("published manifests to %s\n", manifestURL)
	}

	notifyCfg := notifyOptions{Endpoint: strings.TrimSpace(*notifyEndpoint), Token: strings.TrimSpace(*notifyToken)}
	if err := notify(ctx, notifyCfg, buildIndex(manifest)); err != nil {
		fail("notify: %v", err)
	}
	fmt.Printf("indexed %d datasets (%d rows) into %s\n", manifest.DatasetCount, manifest.TotalRows, filepath.Join(*output, manifestName))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func buildManifest(source string, now time.Time, datasets []DatasetEntry) Manifest {
	sort.SliceStable(datasets, func(i, j int) bool {
		return datasets[i].Timestamp > datasets[j].Timestamp
	})
	total := 0
	for _, d := range datasets {
		total += d.Rows
	}
	return Manifest{
		Version:      manifestVersion,
		GeneratedAt:  now.UTC().Format(time.RFC3339),
		Source:       source,
		DatasetCount: len(datasets),
		TotalRows:    total,
		Datasets:     datasets,
	}
}

func buildIndex(m Manifest) Index {
	idx := Index{Version: m.Version, GeneratedAt: m.GeneratedAt, DatasetCount: len(m.Datasets)}
	idx.Datasets = make([]IndexEntry, 0, len(m.Datasets))
	for _, d := range m.Datasets {
		summaryURL := d.SummaryURL
		if summaryURL == "" && d.ID != "" {
			summaryURL = datasetSummaryRelPath(d.ID)
		}
		idx.Datasets = append(idx.Datasets, IndexEntry{
			ID:         d.ID,
			Timestamp:  d.Timestamp,
			Profile:    d.Profile,
			Rows:       d.Rows,
			Infeasible: d.Infeasible,
			Error:      d.Error,
			SummaryURL: summaryURL,
		})
	}
	return idx
}

func datasetSummaryRelPath(id string) string {
	return "./" + datasetSummaryDir + "/" + sanitizeID(id) + "/" + report.SummaryName
}

func sanitizeID(id string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(strings.TrimSpace(id))
}

func entryFromSummary(summary report.Summary, fallbackID string, opts loadOptions) DatasetEntry {
	id := strings.TrimSpace(summary.DatasetID)
	if id == "" {
		id = fallbackID
	}
	summaryURL, archiveURL := deriveObjectURLs(summary.UploadLocation, summary.ArchiveName, opts.ArtifactPublicBaseURL)
	return DatasetEntry{
		ID:             id,
		Timestamp:      summary.Timestamp,
		Profile:        summary.Profile,
		Description:    summary.Description,
		Fields:         summary.Fields,
		Format:         summary.Format,
		Table:          summary.Table,
		Seed:           summary.Seed,
		DataType:       summary.DataType,
		Walker:         summary.Walker,
		Rows:           summary.Rows,
		RowSpecs:       summary.RowSpecs,
		Duplicates:     summary.Duplicates,
		Infeasible:     summary.Infeasible,
		ElapsedMS:      summary.ElapsedMS,
		Error:          summary.Error,
		ArchiveName:    summary.ArchiveName,
		ArchiveCodec:   summary.ArchiveCodec,
		ArchiveURL:     archiveURL,
		SummaryURL:     summaryURL,
		UploadLocation: summary.UploadLocation,
		Details:        summary.Details,
	}
}

func loadLocalDatasets(root string, opts loadOptions) ([]DatasetEntry, error) {
	var datasets []DatasetEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != report.SummaryName {
			return nil
		}
		dir := filepath.Dir(path)
		entry, err := readDatasetFromDir(dir, opts)
		if err != nil {
			util.Warnf("skip dataset dir=%s err=%v", dir, err)
			return nil
		}
		datasets = append(datasets, entry)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", root)
	}
	return datasets, nil
}

func readDatasetFromDir(dir string, opts loadOptions) (DatasetEntry, error) {
	data, err := os.ReadFile(filepath.Join(dir, report.SummaryName))
	if err != nil {
		return DatasetEntry{}, err
	}
	summary, err := report.ReadSummary(data)
	if err != nil {
		return DatasetEntry{}, err
	}
	entry := entryFromSummary(summary, filepath.Base(dir), opts)
	entry.Dir = dir
	if summary.DataFile != "" {
		preview := readFileLimited(filepath.Join(dir, summary.DataFile), opts.MaxBytes)
		entry.Preview = &preview
	}
	return entry, nil
}

func readFileLimited(path string, maxBytes int) FileContent {
	fc := FileContent{Name: filepath.Base(path)}
	f, err := os.Open(path)
	if err != nil {
		return fc
	}
	defer util.CloseWithErr(f, "dataset input")
	fc.Content, fc.Truncated, _ = readLimited(f, maxBytes)
	return fc
}

func readLimited(r io.Reader, maxBytes int) (string, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(maxBytes)+1))
	if err != nil {
		return "", false, err
	}
	truncated := len(data) > maxBytes
	if truncated {
		data = data[:maxBytes]
	}
	return string(data), truncated, nil
}

func parseBucketURI(input string) (bucket string, prefix string, err error) {
	trimmed := input
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}
	if trimmed == "" {
		return "", "", errors.New("missing bucket")
	}
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = strings.TrimPrefix(parts[1], "/")
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
	}
	return bucket, prefix, nil
}

func loadS3Datasets(ctx context.Context, cfg config.S3Config, bucket, prefix string, opts loadOptions) ([]DatasetEntry, error) {
	client, err := uploader.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	keys, err := listSummaryKeys(ctx, client, bucket, prefix)
	if err != nil {
		return nil, err
	}
	datasets := make([]DatasetEntry, 0, len(keys))
	for _, key := range keys {
		dir := strings.TrimSuffix(key, "/"+report.SummaryName)
		entry, err := readDatasetFromS3(ctx, client, bucket, dir, opts)
		if err != nil {
			util.Warnf("skip dataset key=%s err=%v", key, err)
			continue
		}
		entry.Dir = "s3://" + bucket + "/" + dir
		datasets = append(datasets, entry)
	}
	return datasets, nil
}

func listSummaryKeys(ctx context.Context, client *s3.Client, bucket, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "list s3://%s/%s", bucket, prefix)
		}
		for _, obj := range page.Contents {
			if key := aws.ToString(obj.Key); strings.HasSuffix(key, "/"+report.SummaryName) {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func readDatasetFromS3(ctx context.Context, client *s3.Client, bucket, dir string, opts loadOptions) (DatasetEntry, error) {
	// Summaries are small; the generous limit only guards against junk objects.
	data, truncated, err := readObjectLimited(ctx, client, bucket, dir+"/"+report.SummaryName, 8<<20)
	if err != nil {
		return DatasetEntry{}, err
	}
	if truncated {
		return DatasetEntry{}, errors.Errorf("summary %s too large", dir)
	}
	summary, err := report.ReadSummary([]byte(data))
	if err != nil {
		return DatasetEntry{}, err
	}
	entry := entryFromSummary(summary, filepath.Base(dir), opts)
	if summary.DataFile != "" {
		preview := FileContent{Name: summary.DataFile}
		preview.Content, preview.Truncated, err = readObjectLimited(ctx, client, bucket, dir+"/"+summary.DataFile, opts.MaxBytes)
		if err != nil {
			util.Detailf("no data preview for %s: %v", dir, err)
		}
		entry.Preview = &preview
	}
	return entry, nil
}

func readObjectLimited(ctx context.Context, client *s3.Client, bucket, key string, maxBytes int) (string, bool, error) {
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", false, errors.Errorf("missing object %s", key)
		}
		return "", false, errors.Wrapf(err, "get %s", key)
	}
	defer util.CloseWithErr(resp.Body, "s3 response body")
	return readLimited(resp.Body, maxBytes)
}

func writeOutputs(output string, m Manifest) error {
	if err := os.MkdirAll(output, 0o755); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(output, manifestName), m); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(output, indexName), buildIndex(m)); err != nil {
		return err
	}
	for _, d := range m.Datasets {
		if d.ID == "" || d.SummaryURL != "" {
			continue
		}
		path := filepath.Join(output, datasetSummaryDir, sanitizeID(d.ID), report.SummaryName)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := writeJSONFile(path, d); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer util.CloseWithErr(f, "manifest output")
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// collectPublishFiles lists the manifest files under output, relative to it.
func collectPublishFiles(output string) ([]string, error) {
	files := []string{manifestName, indexName}
	root := filepath.Join(output, datasetSummaryDir)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || d.Name() != report.SummaryName {
			return nil
		}
		rel, err := filepath.Rel(output, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func publishManifests(ctx context.Context, opts publishOptions, output string) (string, error) {
	if !opts.S3.Enabled {
		return "", nil
	}
	client, err := uploader.NewS3Client(ctx, opts.S3)
	if err != nil {
		return "", err
	}
	files, err := collectPublishFiles(output)
	if err != nil {
		return "", err
	}
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(output, filepath.FromSlash(name)))
		if err != nil {
			return "", err
		}
		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(opts.S3.Bucket),
			Key:           aws.String(objectKey(opts.S3.Prefix, name)),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
			ContentType:   aws.String("application/json"),
		})
		if err != nil {
			return "", errors.Wrapf(err, "put %s", name)
		}
	}
	key := objectKey(opts.S3.Prefix, indexName)
	if opts.PublicBaseURL != "" {
		return objectURL(opts.PublicBaseURL, key), nil
	}
	return fmt.Sprintf("s3://%s/%s", opts.S3.Bucket, key), nil
}

func objectKey(prefix, name string) string {
	trimmedPrefix := strings.Trim(prefix, "/")
	trimmedName := strings.TrimLeft(strings.TrimSpace(name), "/")
	if trimmedPrefix == "" {
		return trimmedName
	}
	return trimmedPrefix + "/" + trimmedName
}

func objectURL(base, name string) string {
	trimmedBase := strings.TrimRight(strings.TrimSpace(base), "/")
	trimmedName := strings.TrimLeft(strings.TrimSpace(name), "/")
	if trimmedBase == "" || trimmedName == "" {
		return ""
	}
	return trimmedBase + "/" + trimmedName
}

// deriveObjectURLs maps an upload location to public summary and archive
// URLs. Bucket locations (s3://, gs://) need a public base URL.
func deriveObjectURLs(uploadLocation, archiveName, publicBaseURL string) (summaryURL string, archiveURL string) {
	base := strings.TrimSpace(uploadLocation)
	if base == "" {
		return "", ""
	}
	summaryURL = deriveObjectURL(base, report.SummaryName, publicBaseURL)
	if strings.TrimSpace(archiveName) != "" {
		archiveURL = deriveObjectURL(base, archiveName, publicBaseURL)
	}
	return summaryURL, archiveURL
}

func deriveObjectURL(uploadLocation, name, publicBaseURL string) string {
	lower := strings.ToLower(uploadLocation)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return objectURL(uploadLocation, name)
	}
	if !strings.HasPrefix(lower, "s3://") && !strings.HasPrefix(lower, "gs://") {
		return ""
	}
	if strings.TrimSpace(publicBaseURL) == "" {
		return ""
	}
	_, prefix, err := parseBucketURI(uploadLocation)
	if err != nil {
		return ""
	}
	return objectURL(publicBaseURL, objectKey(prefix, name))
}

func notify(ctx context.Context, opts notifyOptions, idx Index) error {
	if opts.Endpoint == "" {
		return nil
	}
	const notifyTimeout = 20 * time.Second
	body, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	requestCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	resp, err := (&http.Client{Timeout: notifyTimeout}).Do(req)
	if err != nil {
		return err
	}
	defer util.CloseWithErr(resp.Body, "notify response")
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	msg, _, _ := readLimited(resp.Body, 8192)
	return errors.Errorf("notify failed status=%d body=%s", resp.StatusCode, strings.TrimSpace(msg))
}
