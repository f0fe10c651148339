package server

import (
	"fmt"
	"time"

	"github.com/opst/wlconf/pkg/cache"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/server.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

type ServerConfigMarshall struct {
	Port     int32                   `yaml:"port"`
	Cache    *CacheConfigMarshall    `yaml:"cache,omitempty"`
	Rollback *RollbackConfigMarshall `yaml:"rollback,omitempty"`
	Cluster  *ClusterConfigMarshall  `yaml:"cluster,omitempty"`
	Audit    *AuditConfigMarshall    `yaml:"audit,omitempty"`
	Auth     *AuthConfigMarshall     `yaml:"auth,omitempty"`
}

var _ Marshalled[*ServerConfig] = &ServerConfigMarshall{}

func (s *ServerConfigMarshall) trySeal(path string) *ServerConfig {
	return &ServerConfig{
		port:     required(s.Port, path+".port"),
		cache:    orEmpty(s.Cache).trySeal(path + ".cache"),
		rollback: orEmpty(s.Rollback).trySeal(path + ".rollback"),
		cluster:  orEmpty(s.Cluster).trySeal(path + ".cluster"),
		audit:    orEmpty(s.Audit).trySeal(path + ".audit"),
		auth:     orEmpty(s.Auth).trySeal(path + ".auth"),
	}
}

type CacheConfigMarshall struct {
	MaxSize       int                        `yaml:"maxSize,omitempty"`
	SweepInterval string                     `yaml:"sweepInterval,omitempty"`
	Policy        *CachePolicyConfigMarshall `yaml:"policy,omitempty"`
}

func (c *CacheConfigMarshall) trySeal(path string) *CacheConfig {
	return &CacheConfig{
		maxSize:       nonNegative(withDefault(c.MaxSize, 1000), path+".maxSize"),
		sweepInterval: positiveDuration(withDefault(c.SweepInterval, "60s"), path+".sweepInterval"),
		policy:        orEmpty(c.Policy).trySeal(path + ".policy"),
	}
}

type CachePolicyConfigMarshall struct {
	Config string `yaml:"config,omitempty"`
	List   string `yaml:"list,omitempty"`
}

func (c *CachePolicyConfigMarshall) trySeal(path string) *CachePolicyConfig {
	return &CachePolicyConfig{
		config: policy(withDefault(c.Config, cache.ShortTerm.String()), path+".config"),
		list:   policy(withDefault(c.List, cache.MediumTerm.String()), path+".list"),
	}
}

type RollbackConfigMarshall struct {
	MaxRecords int    `yaml:"maxRecords,omitempty"`
	MaxAge     string `yaml:"maxAge,omitempty"`
}

func (r *RollbackConfigMarshall) trySeal(path string) *RollbackConfig {
	maxAge := time.Duration(0)
	if r.MaxAge != "" {
		maxAge = positiveDuration(r.MaxAge, path+".maxAge")
	}
	return &RollbackConfig{
		maxRecords: nonNegative(withDefault(r.MaxRecords, 50), path+".maxRecords"),
		maxAge:     maxAge,
	}
}

type ClusterConfigMarshall struct {
	Kubeconfig     string `yaml:"kubeconfig,omitempty"`
	RequestTimeout string `yaml:"requestTimeout,omitempty"`
}

func (c *ClusterConfigMarshall) trySeal(path string) *ClusterConfig {
	return &ClusterConfig{
		kubeconfig:     c.Kubeconfig,
		requestTimeout: positiveDuration(withDefault(c.RequestTimeout, "10s"), path+".requestTimeout"),
	}
}

type AuditConfigMarshall struct {
	Database string `yaml:"database,omitempty"`
}

func (a *AuditConfigMarshall) trySeal(string) *AuditConfig {
	return &AuditConfig{database: a.Database}
}

type AuthConfigMarshall struct {
	SignKey string `yaml:"signKey,omitempty"`
}

func (a *AuthConfigMarshall) trySeal(string) *AuthConfig {
	return &AuthConfig{signKey: a.SignKey}
}

func orEmpty[T any](v *T) *T {
	if v == nil {
		return new(T)
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}

func withDefault[T comparable](v T, def T) T {
	if v == *new(T) {
		return def
	}
	return v
}

func nonNegative(v int, path string) int {
	if v < 0 {
		panic(fmt.Sprintf("%s should not be negative: %d", path, v))
	}
	return v
}

func positiveDuration(v string, path string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s can not be parsed: %w", path, err))
	}
	if d <= 0 {
		panic(fmt.Sprintf("%s should be positive: %s", path, v))
	}
	return d
}

func policy(v string, path string) cache.Policy {
	p, err := cache.ParsePolicy(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", path, err))
	}
	return p
}
