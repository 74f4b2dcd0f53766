// Package aws adapts the AWS control plane to the engine's client
// surface. Raw SDK errors are classified here, at the boundary; nothing
// above this package inspects AWS error codes.
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/stackrig-io/stackrig/internal/cloud"
	"github.com/stackrig-io/stackrig/internal/resource"
)

// KeyMaterialSink receives private key material exactly once, right after
// a key pair is created. Implementations must persist it with restrictive
// permissions and never log it.
type KeyMaterialSink func(name string, material []byte) error

type Provider struct {
	region string

	ec2Client *ec2.Client
	iamClient *iam.Client
	s3Client  *s3.Client
	stsClient *sts.Client

	keySink KeyMaterialSink

	accessKeyID     string
	secretAccessKey string
	sessionToken    string
}

var _ cloud.ControlPlaneClient = (*Provider)(nil)

type Option func(*Provider)

// WithKeyMaterialSink registers the sink that persists generated private
// keys. Creating a KeyPair without a sink fails rather than dropping the
// only copy of the key.
func WithKeyMaterialSink(sink KeyMaterialSink) Option {
	return func(p *Provider) { p.keySink = sink }
}

// WithStaticCredentials bypasses the SDK's default credential chain.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(p *Provider) {
		p.accessKeyID = accessKeyID
		p.secretAccessKey = secretAccessKey
		p.sessionToken = sessionToken
	}
}

// New loads AWS configuration for the region and builds the service
// clients.
func New(ctx context.Context, region string, opts ...Option) (*Provider, error) {
	p := &Provider{region: region}
	for _, o := range opts {
		o(p)
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if p.accessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.accessKeyID, p.secretAccessKey, p.sessionToken)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}

	p.ec2Client = ec2.NewFromConfig(cfg)
	p.iamClient = iam.NewFromConfig(cfg)
	p.s3Client = s3.NewFromConfig(cfg)
	p.stsClient = sts.NewFromConfig(cfg)
	return p, nil
}

// Region returns the region this provider operates in.
func (p *Provider) Region() string {
	return p.region
}

// CallerIdentity asks STS who the configured credentials belong to. It
// doubles as the pre-flight credential check: commands call it before a
// pipeline starts so a broken credential chain surfaces as one clear
// diagnostic instead of a failed first step.
func (p *Provider) CallerIdentity(ctx context.Context) (account, arn string, err error) {
	resp, err := p.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", "", classify(err)
	}
	return *resp.Account, *resp.Arn, nil
}

// Create provisions one resource. Kinds addressed purely by tag:Name get
// a pre-flight lookup so an existing resource surfaces as DuplicateExists
// here, the same way kinds whose create call reports duplicates itself
// behave.
func (p *Provider) Create(ctx context.Context, kind resource.Kind, key string, props map[string]any) (string, error) {
	switch kind {
	case resource.Network, resource.Subnet, resource.InternetGateway,
		resource.ElasticIP, resource.NatGateway, resource.RouteTable,
		resource.ComputeInstance:
		id, err := p.Find(ctx, kind, key)
		if err == nil {
			return "", &cloud.Error{
				Kind:    resource.DuplicateExists,
				Code:    "AlreadyExists",
				Message: fmt.Sprintf("%s %q already exists as %s", kind, key, id),
			}
		}
		if !cloud.IsKind(err, resource.NotFound) {
			return "", err
		}
	}

	switch kind {
	case resource.Network:
		return p.createNetwork(ctx, key, props)
	case resource.Subnet:
		return p.createSubnet(ctx, key, props)
	case resource.InternetGateway:
		return p.createInternetGateway(ctx, key, props)
	case resource.ElasticIP:
		return p.createElasticIP(ctx, key)
	case resource.NatGateway:
		return p.createNatGateway(ctx, key, props)
	case resource.RouteTable:
		return p.createRouteTable(ctx, key, props)
	case resource.SecurityGroup:
		return p.createSecurityGroup(ctx, key, props)
	case resource.KeyPair:
		return p.createKeyPair(ctx, key, props)
	case resource.ComputeInstance:
		return p.createInstance(ctx, key, props)
	case resource.ProfileAssociation:
		return p.createProfileAssociation(ctx, key, props)
	case resource.IamRole:
		return p.createRole(ctx, key, props)
	case resource.IamInstanceProfile:
		return p.createInstanceProfile(ctx, key)
	case resource.RoleAttachment:
		return p.createRoleAttachment(ctx, key, props)
	case resource.Bucket:
		return p.createBucket(ctx, key, props)
	case resource.BucketObject:
		return p.createBucketObject(ctx, key, props)
	}
	return "", cloud.Errorf(resource.ProviderError, "unsupported resource kind %q", kind)
}

// Find resolves an identifying key to a provider ID.
func (p *Provider) Find(ctx context.Context, kind resource.Kind, key string) (string, error) {
	switch kind {
	case resource.Network:
		return p.findNetwork(ctx, key)
	case resource.Subnet:
		return p.findSubnet(ctx, key)
	case resource.InternetGateway:
		return p.findInternetGateway(ctx, key)
	case resource.ElasticIP:
		return p.findElasticIP(ctx, key)
	case resource.NatGateway:
		return p.findNatGateway(ctx, key)
	case resource.RouteTable:
		return p.findRouteTable(ctx, key)
	case resource.SecurityGroup:
		return p.FindSecurityGroup(ctx, key, "")
	case resource.KeyPair:
		return p.findKeyPair(ctx, key)
	case resource.ComputeInstance:
		return p.findInstance(ctx, key)
	case resource.ProfileAssociation:
		return p.findProfileAssociation(ctx, key)
	case resource.IamRole:
		return p.findRole(ctx, key)
	case resource.IamInstanceProfile:
		return p.findInstanceProfile(ctx, key)
	case resource.RoleAttachment:
		return p.findRoleAttachment(ctx, key)
	case resource.Bucket:
		return p.findBucket(ctx, key)
	case resource.BucketObject:
		return p.findBucketObject(ctx, key)
	}
	return "", cloud.Errorf(resource.ProviderError, "unsupported resource kind %q", kind)
}

// Tag applies tags to an existing resource.
func (p *Provider) Tag(ctx context.Context, kind resource.Kind, providerID string, tags map[string]string) error {
	switch kind {
	case resource.Network, resource.Subnet, resource.InternetGateway,
		resource.ElasticIP, resource.NatGateway, resource.RouteTable,
		resource.SecurityGroup, resource.KeyPair, resource.ComputeInstance:
		return p.tagEC2(ctx, providerID, tags)
	case resource.IamRole:
		return p.tagRole(ctx, providerID, tags)
	case resource.IamInstanceProfile:
		return p.tagInstanceProfile(ctx, providerID, tags)
	case resource.Bucket:
		return p.tagBucket(ctx, providerID, tags)
	}
	return cloud.Errorf(resource.ProviderError, "resource kind %q does not support tagging", kind)
}

// CheckAvailable reports whether a resource is ready for use. Kinds with
// no readiness signal of their own are usable as soon as they exist.
func (p *Provider) CheckAvailable(ctx context.Context, kind resource.Kind, providerID string) (bool, error) {
	switch kind {
	case resource.IamInstanceProfile:
		return p.instanceProfileAvailable(ctx, providerID)
	case resource.NatGateway:
		return p.natGatewayAvailable(ctx, providerID)
	case resource.ComputeInstance:
		return p.instanceRunning(ctx, providerID)
	case resource.Bucket:
		return p.bucketAvailable(ctx, providerID)
	}
	return true, nil
}

// decodeProps marshals the generic property map into a typed config
// struct so the per-kind create calls work with real fields.
func decodeProps(props map[string]any, out any) error {
	raw, err := json.Marshal(props)
	if err != nil {
		return cloud.Errorf(resource.ProviderError, "encoding properties: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return cloud.Errorf(resource.ProviderError, "decoding properties: %v", err)
	}
	return nil
}
