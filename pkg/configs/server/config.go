package server

import (
	"time"

	"github.com/opst/wlconf/pkg/cache"
)

// ServerConfig is the sealed (read-only) configuration of wlconfd.
//
// To get an instance, use `TrySeal(*ServerConfigMarshall)` or `Unmarshal`.
type ServerConfig struct {
	port     int32
	cache    *CacheConfig
	rollback *RollbackConfig
	cluster  *ClusterConfig
	audit    *AuditConfig
	auth     *AuthConfig
}

func (c *ServerConfig) Port() int32 {
	return c.port
}

func (c *ServerConfig) Cache() *CacheConfig {
	return c.cache
}

func (c *ServerConfig) Rollback() *RollbackConfig {
	return c.rollback
}

func (c *ServerConfig) Cluster() *ClusterConfig {
	return c.cluster
}

func (c *ServerConfig) Audit() *AuditConfig {
	return c.audit
}

func (c *ServerConfig) Auth() *AuthConfig {
	return c.auth
}

type CacheConfig struct {
	maxSize       int
	sweepInterval time.Duration
	policy        *CachePolicyConfig
}

// Max number of cache entries kept by sweep. default = 1000
func (c *CacheConfig) MaxSize() int {
	return c.maxSize
}

// Interval of cache sweep. default = 60s
func (c *CacheConfig) SweepInterval() time.Duration {
	return c.sweepInterval
}

func (c *CacheConfig) Policy() *CachePolicyConfig {
	return c.policy
}

// CachePolicyConfig tells how long fetched results are cached.
type CachePolicyConfig struct {
	config cache.Policy
	list   cache.Policy
}

// Policy for a fetched configuration. default = short_term
func (c *CachePolicyConfig) Config() cache.Policy {
	return c.config
}

// Policy for a listing. default = medium_term
func (c *CachePolicyConfig) List() cache.Policy {
	return c.list
}

type RollbackConfig struct {
	maxRecords int
	maxAge     time.Duration
}

// Max number of snapshots per resource. default = 50
func (r *RollbackConfig) MaxRecords() int {
	return r.maxRecords
}

// Lifetime of snapshots. 0 means unlimited.
func (r *RollbackConfig) MaxAge() time.Duration {
	return r.maxAge
}

type ClusterConfig struct {
	kubeconfig     string
	requestTimeout time.Duration
}

// Path to kubeconfig. Empty means "search default locations, or in-cluster".
func (c *ClusterConfig) Kubeconfig() string {
	return c.kubeconfig
}

// Timeout of each request to the cluster. default = 10s
func (c *ClusterConfig) RequestTimeout() time.Duration {
	return c.requestTimeout
}

type AuditConfig struct {
	database string
}

// Connection string for the audit database. Empty means audit logs go to the log only.
func (a *AuditConfig) Database() string {
	return a.database
}

type AuthConfig struct {
	signKey string
}

// HS256 key to verify bearer tokens. Empty means tokens are not required.
func (a *AuthConfig) SignKey() string {
	return a.signKey
}
