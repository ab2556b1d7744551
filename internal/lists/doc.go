// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lists implements the identifier list stages of the pipeline:
// splitting differential expression results into up- and down-regulated
// lists and annotating lists with functional descriptions.
package lists
