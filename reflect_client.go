// Copyright 2023-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rulepack

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"buf.build/gen/go/bufbuild/reflect/bufbuild/connect-go/buf/reflect/v1beta1/reflectv1beta1connect"
	reflectv1beta1 "buf.build/gen/go/bufbuild/reflect/protocolbuffers/go/buf/reflect/v1beta1"
	"github.com/bufbuild/connect-go"
	"google.golang.org/protobuf/types/descriptorpb"
)

// DefaultBSRAddress is the base URL of the public Buf Schema Registry API.
const DefaultBSRAddress = "https://api.buf.build"

// NewBSRSource returns a SchemaSource that uses the given Buf Reflection API
// client to download descriptors for the given module. If the given version
// is non-empty, the descriptors will be downloaded from that version of the
// module. If symbols is non-empty, only the descriptors needed to describe
// those symbols (typically the rule message name) are downloaded.
//
// To create a client that can download descriptors from the buf.build public
// BSR, see [NewFileDescriptorSetServiceClient].
func NewBSRSource(
	client reflectv1beta1connect.FileDescriptorSetServiceClient,
	module string,
	version string,
	symbols ...string,
) SchemaSource {
	return &bsrSource{
		client:  client,
		module:  module,
		version: version,
		symbols: symbols,
	}
}

type bsrSource struct {
	client          reflectv1beta1connect.FileDescriptorSetServiceClient
	module, version string
	symbols         []string
}

func (b *bsrSource) GetSchema(ctx context.Context) (*descriptorpb.FileDescriptorSet, string, error) {
	req := connect.NewRequest(&reflectv1beta1.GetFileDescriptorSetRequest{
		Module:  b.module,
		Version: b.version,
		Symbols: b.symbols,
	})
	resp, err := b.client.GetFileDescriptorSet(ctx, req)
	if err != nil {
		return nil, "", err
	}
	return resp.Msg.FileDescriptorSet, resp.Msg.Version, nil
}

func (b *bsrSource) GetSchemaID() string {
	if b.version == "" {
		return b.module
	}
	return b.module + ":" + b.version
}

// NewFileDescriptorSetServiceClient creates an authenticated client of the
// Buf Reflection API served at baseURL (use [DefaultBSRAddress] for the
// public BSR). If the given token is empty, the BUF_TOKEN environment
// variable will be consulted for the host of baseURL.
//
// For help with authenticating with the Buf Schema Registry visit: https://docs.buf.build/bsr/authentication
func NewFileDescriptorSetServiceClient(httpClient connect.HTTPClient, baseURL, token string) reflectv1beta1connect.FileDescriptorSetServiceClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if token == "" {
		host := strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://")
		host = strings.TrimPrefix(host, "api.")
		token, _ = BufTokenFromEnvironment(host)
	}
	var opts []connect.ClientOption
	if token != "" {
		opts = append(opts, connect.WithInterceptors(NewAuthInterceptor(token)))
	}
	return reflectv1beta1connect.NewFileDescriptorSetServiceClient(httpClient, baseURL, opts...)
}

// NewAuthInterceptor accepts a token for a Buf Schema Registry (BSR) and returns an
// interceptor which can be used when creating a Connect client so that every RPC
// to the BSR is correctly authenticated.
//
// To understand more about authenticating with the BSR visit: https://docs.buf.build/bsr/authentication
//
// To get a token from the environment (e.g. BUF_TOKEN env var), see BufTokenFromEnvironment.
func NewAuthInterceptor(token string) connect.Interceptor {
	bearerAuthValue := fmt.Sprintf("Bearer %s", token)
	return connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, request connect.AnyRequest) (connect.AnyResponse, error) {
			request.Header().Set("Authorization", bearerAuthValue)
			return next(ctx, request)
		}
	})
}

// BufTokenFromEnvironment returns a token that can be used to download the given module from
// the BSR by inspecting the BUF_TOKEN environment variable. The given moduleRef can be a full
// module reference, with or without a version, or it can just be the domain of the BSR.
func BufTokenFromEnvironment(moduleRef string) (string, error) {
	parts := strings.SplitN(moduleRef, "/", 2)
	envBufToken := os.Getenv("BUF_TOKEN")
	if envBufToken == "" {
		return "", fmt.Errorf("no BUF_TOKEN environment variable set")
	}
	tok := parseBufToken(envBufToken, parts[0])
	if tok == "" {
		return "", fmt.Errorf("BUF_TOKEN environment variable did not include a token for remote %q", parts[0])
	}
	return tok, nil
}

func parseBufToken(envVar, remote string) string {
	isMultiToken := strings.ContainsAny(envVar, "@,")
	if !isMultiToken {
		return envVar
	}
	tokenConfigs := strings.Split(envVar, ",")
	suffix := "@" + remote
	for _, tokenConfig := range tokenConfigs {
		token := strings.TrimSuffix(tokenConfig, suffix)
		if token == tokenConfig {
			// did not have the right suffix
			continue
		}
		return token
	}
	return ""
}
