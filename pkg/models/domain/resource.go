package domain

import (
	"fmt"
	"time"
)

// Resource types tracked by the compliance loop. The naming follows the
// AWS Config resource type convention so that provider events map 1:1.
const (
	ResourceTypeSecurityGroup = "AWS::EC2::SecurityGroup"
	ResourceTypeS3Bucket      = "AWS::S3::Bucket"
	ResourceTypeDBInstance    = "AWS::RDS::DBInstance"
	ResourceTypeIAMRole       = "AWS::IAM::Role"
	ResourceTypeIAMUser       = "AWS::IAM::User"
)

// ResourceRef identifies a single monitored resource.
type ResourceRef struct {
	Type    string
	ID      string
	Region  string
	Account string
}

// Key returns the identity under which the scheduler serializes work for
// this resource. Two refs with the same key share one pipeline.
func (r ResourceRef) Key() string {
	return fmt.Sprintf("%s/%s", r.Type, r.ID)
}

func (r ResourceRef) String() string {
	return r.Key()
}

// ResourceSnapshot captures the configuration of a resource at a point in
// time. Snapshots are immutable once captured; rule predicates must treat
// the attribute map as read-only.
type ResourceSnapshot struct {
	Ref        ResourceRef
	Attributes map[string]any
	CapturedAt time.Time
}

// StringAttr returns the named attribute as a string. The second return
// value is false when the attribute is absent or has a different type,
// which predicates translate into NOT_APPLICABLE rather than an error.
func (s ResourceSnapshot) StringAttr(name string) (string, bool) {
	v, ok := s.Attributes[name]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// BoolAttr returns the named attribute as a bool.
func (s ResourceSnapshot) BoolAttr(name string) (bool, bool) {
	v, ok := s.Attributes[name]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// StringsAttr returns the named attribute as a string slice.
func (s ResourceSnapshot) StringsAttr(name string) ([]string, bool) {
	v, ok := s.Attributes[name]
	if !ok {
		return nil, false
	}
	ss, ok := v.([]string)
	return ss, ok
}

// IngressAttr returns the named attribute as a list of ingress rules.
func (s ResourceSnapshot) IngressAttr(name string) ([]IngressRule, bool) {
	v, ok := s.Attributes[name]
	if !ok {
		return nil, false
	}
	rules, ok := v.([]IngressRule)
	return rules, ok
}

// IngressRule is a single inbound rule of a security group.
type IngressRule struct {
	Protocol string
	FromPort int32
	ToPort   int32
	CIDR     string
}

func (r IngressRule) String() string {
	return fmt.Sprintf("%s %d-%d from %s", r.Protocol, r.FromPort, r.ToPort, r.CIDR)
}

// CoversPort reports whether the rule includes the given port.
func (r IngressRule) CoversPort(port int32) bool {
	if r.Protocol != "tcp" && r.Protocol != "-1" {
		return false
	}
	return r.FromPort <= port && port <= r.ToPort
}
