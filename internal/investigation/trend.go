// MIT License
//
// Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
package investigation

import "time"

// DefaultTrendRetention is how long trend points are kept.
const DefaultTrendRetention = 90 * 24 * time.Hour

// AppendAndPrune appends point to series and drops every point older than
// retention as of now. Pruning only happens here, so a series that receives
// no new points keeps its expired tail until the next ingestion for that IP.
func AppendAndPrune(series []TrendPoint, point TrendPoint, now time.Time, retention time.Duration) []TrendPoint {
	out := withinWindow(series, now, retention)
	if now.Sub(point.Timestamp) <= retention {
		out = append(out, point)
	}
	return out
}

// withinWindow returns the points no older than window, oldest first.
func withinWindow(series []TrendPoint, now time.Time, window time.Duration) []TrendPoint {
	out := make([]TrendPoint, 0, len(series)+1)
	for _, p := range series {
		if now.Sub(p.Timestamp) <= window {
			out = append(out, p)
		}
	}
	return out
}
