package couchbase

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
)

// Config holds the registry connection settings.
type Config struct {
	URL      string
	Username string
	Password string
	Bucket   string
	Timeout  time.Duration
}

// ConnectionManager handles Couchbase cluster and bucket connections
type ConnectionManager struct {
	cluster *gocb.Cluster
	bucket  *gocb.Bucket
}

// NormalizeConnString turns the configured URL into a gocb connection string.
// http:// maps to couchbase:// for local clusters, https:// and bare hosts to
// couchbases://.
func NormalizeConnString(url string) string {
	url = strings.TrimSpace(url)
	switch {
	case strings.HasPrefix(url, "couchbase://"), strings.HasPrefix(url, "couchbases://"):
		return url
	case strings.HasPrefix(url, "http://"):
		return "couchbase://" + strings.TrimPrefix(url, "http://")
	case strings.HasPrefix(url, "https://"):
		return "couchbases://" + strings.TrimPrefix(url, "https://")
	default:
		return "couchbases://" + url
	}
}

// NewConnectionManager connects to the cluster and opens the registry bucket
func NewConnectionManager(cfg Config) (*ConnectionManager, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("registry bucket name is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cluster, err := gocb.Connect(NormalizeConnString(cfg.URL), gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}

	if err := cluster.WaitUntilReady(timeout, nil); err != nil {
		cluster.Close(nil)
		return nil, fmt.Errorf("failed to wait for cluster: %w", err)
	}

	// The bucket is provisioned outside this tool
	bucket := cluster.Bucket(cfg.Bucket)
	err = bucket.WaitUntilReady(timeout/3, &gocb.WaitUntilReadyOptions{
		ServiceTypes: []gocb.ServiceType{gocb.ServiceTypeKeyValue},
	})
	if err != nil {
		cluster.Close(nil)
		return nil, fmt.Errorf("bucket '%s' is not accessible: %w", cfg.Bucket, err)
	}

	return &ConnectionManager{
		cluster: cluster,
		bucket:  bucket,
	}, nil
}

// Close closes the Couchbase connection
func (cm *ConnectionManager) Close() error {
	return cm.cluster.Close(nil)
}

// Collection returns the collection holding run documents.
func (cm *ConnectionManager) Collection() *gocb.Collection {
	return cm.bucket.DefaultCollection()
}
