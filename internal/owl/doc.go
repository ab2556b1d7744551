// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package owl implements a lean decoder for the Gene Ontology OBO in OWL
// RDF/XML encoding. Only top-level owl:Class elements are decoded, and
// only the class annotations needed to navigate the is_a hierarchy and
// name terms are returned. It is not an RDF/XML parser implementation.
package owl
