package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"hr-assistant-go/internal/model"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	bucket, object string
	body           []byte
	contentType    string
	err            error
}

func (f *fakePutter) PutObject(_ context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	f.bucket, f.object, f.contentType = bucket, object, opts.ContentType
	b, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.body = b
	return minio.UploadInfo{Size: size}, nil
}

func TestExportSnapshotter_Save(t *testing.T) {
	putter := &fakePutter{}
	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	s := &ExportSnapshotter{putter: putter, bucket: "exports", now: func() time.Time { return at }}

	rows := []model.Row{{"employee_code": "E1"}, {"employee_code": "E2"}}
	id, err := s.Save(context.Background(), model.IntentClockRecords, rows)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "exports", putter.bucket)
	assert.Equal(t, "exports/2025/03/14/"+id+".json", putter.object)
	assert.Equal(t, "application/json", putter.contentType)

	var snap snapshot
	require.NoError(t, json.Unmarshal(putter.body, &snap))
	assert.Equal(t, id, snap.ExportID)
	assert.Equal(t, "clock_records", snap.Intent)
	assert.Len(t, snap.Rows, 2)
}

func TestExportSnapshotter_UploadError(t *testing.T) {
	s := &ExportSnapshotter{putter: &fakePutter{err: errors.New("no such bucket")}, bucket: "x", now: time.Now}
	id, err := s.Save(context.Background(), model.IntentPayroll, nil)
	assert.Error(t, err)
	assert.Empty(t, id)
}
