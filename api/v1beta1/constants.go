//
// Copyright (c) 2021 Red Hat, Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package v1beta1

// ResourceType is the kind of infrastructure a Resource describes.
type ResourceType string

const (
	DataSourceType        ResourceType = "DataSource"
	ConnectionFactoryType ResourceType = "ConnectionFactory"
	QueueType             ResourceType = "Queue"
	TopicType             ResourceType = "Topic"
)

// The property keys understood on DataSource resources.
const (
	JdbcDriverProperty = "JdbcDriver"
	JdbcUrlProperty    = "JdbcUrl"
	JtaManagedProperty = "JtaManaged"
	UserNameProperty   = "UserName"
	PasswordProperty   = "Password" //#nosec G101 -- false positive, this is just a property key
	AliasesProperty    = "Aliases"
)

const (
	// NonJtaSuffix is appended to the id of a transactional data source (or to the name of a persistence unit)
	// to form the id of its non-transactional counterpart.
	NonJtaSuffix = "NonJta"
	// JtaSuffix is appended to the id of a non-transactional data source when a managed copy is created for it.
	JtaSuffix = "Jta"
)

// JndiPrefixes are the prefixes stripped from data source names found in persistence descriptors before they are
// looked up in the registry. The longest ones go first.
var JndiPrefixes = []string{
	"java:openejb/Resource/",
	"openejb:Resource/",
	"java:comp/env/",
	"java:",
}
