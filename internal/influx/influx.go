package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/labelshot/labelshot/pkg/core"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Measurement names.
const (
	MeasurementCapture = "capture"
	MeasurementObject  = "captured_object"
)

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string
	// Session tags every point with the capture session it belongs to.
	Session *core.Session

	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string, session *core.Session) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: []string{viper.GetString("influx.bucket")},
		Logger:      log,
		BackupPath:  backupPath,
		Session:     session,
	}
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer, points go to a gzip line protocol file at BackupPath instead.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(context.Background())

	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
	} else {
		m.IsValid = true
	}

	if m.IsValid {
		err = m.setupOrganizationAndBuckets()
		if err != nil {
			return err
		}
		m.CreateWriters()
		m.Logger.Info().Msg("InfluxDB client initialized")
	} else {
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
	}

	return nil
}

func (m *Manager) setupOrganizationAndBuckets() error {
	ctx := context.Background()
	orgName := viper.GetString("influx.org")

	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90,
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Logger.Trace().Str("bucket", bucket).Msg("Creating InfluxDB writer")
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		if _, ok := m.Writers[bucket]; !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		m.Writers[bucket].WritePoint(point)
	} else {
		if m.BackupWriter == nil {
			return fmt.Errorf("influxDB client not initialized and backup writer not available")
		}

		// line protocol already ends with a newline
		lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
		_, err := m.BackupWriter.Write([]byte(lineProtocol))
		if err != nil {
			return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
		}
	}

	return nil
}

// RecordCapture writes one capture point plus one point per labeled object.
func (m *Manager) RecordCapture(rec *core.CaptureRecord) error {
	ctx := context.Background()
	bucket := m.BucketNames[0]

	if err := m.WritePoint(ctx, bucket, CapturePoint(m.Session, rec)); err != nil {
		return err
	}
	for _, obj := range rec.Objects {
		if err := m.WritePoint(ctx, bucket, ObjectPoint(m.Session, rec, obj)); err != nil {
			return err
		}
	}
	return nil
}

// CapturePoint summarizes one artifact set.
func CapturePoint(s *core.Session, rec *core.CaptureRecord) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementCapture).
		AddTag("capture", rec.BaseName).
		AddField("objects", len(rec.Objects)).
		AddField("tic", int64(rec.Tic)).
		SetTime(rec.CapturedAt)
	return tagSession(p, s).SortTags().SortFields()
}

// ObjectPoint records the bounding box of one object in a capture.
func ObjectPoint(s *core.Session, rec *core.CaptureRecord, obj core.ObjectRecord) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementObject).
		AddTag("capture", rec.BaseName).
		AddTag("obj_name", obj.ObjectName).
		AddField("obj_id", obj.ObjectID).
		AddField("pos_x", obj.PosX).
		AddField("pos_y", obj.PosY).
		AddField("width", obj.Width).
		AddField("height", obj.Height).
		SetTime(rec.CapturedAt)
	return tagSession(p, s).SortTags().SortFields()
}

func tagSession(p *influxdb2_write.Point, s *core.Session) *influxdb2_write.Point {
	if s == nil {
		return p
	}
	return p.AddTag("scenario", s.ScenarioPath).
		AddTag("resolution", s.Resolution.Name).
		AddTag("format", s.ScreenFormat.String())
}

// Close flushes pending writes and the backup file.
func (m *Manager) Close() error {
	var errs []error
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}
