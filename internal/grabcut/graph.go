package grabcut

// flowEpsilon is the residual capacity below which an edge counts as
// saturated.
const flowEpsilon = 1e-9

// graph is a flow network over n pixel nodes plus a source and a sink.
// Edges are stored in pairs: edge e and e^1 are each other's residual.
type graph struct {
	n      int // node count including terminals
	source int
	sink   int

	head []int32
	next []int32
	to   []int32
	cap  []float64

	level []int32
	iter  []int32
	queue []int32
}

// newGraph allocates a network for pixels pixel nodes. edgeHint is the
// expected number of undirected pixel-pixel edges.
func newGraph(pixels, edgeHint int) *graph {
	n := pixels + 2
	g := &graph{
		n:      n,
		source: pixels,
		sink:   pixels + 1,
		head:   make([]int32, n),
		level:  make([]int32, n),
		iter:   make([]int32, n),
		queue:  make([]int32, 0, n),
	}
	for i := range g.head {
		g.head[i] = -1
	}
	edges := 2 * (2*pixels + edgeHint)
	g.next = make([]int32, 0, edges)
	g.to = make([]int32, 0, edges)
	g.cap = make([]float64, 0, edges)
	return g
}

func (g *graph) addEdge(u, v int, c, rc float64) {
	g.to = append(g.to, int32(v))
	g.cap = append(g.cap, c)
	g.next = append(g.next, g.head[u])
	g.head[u] = int32(len(g.to) - 1)

	g.to = append(g.to, int32(u))
	g.cap = append(g.cap, rc)
	g.next = append(g.next, g.head[v])
	g.head[v] = int32(len(g.to) - 1)
}

// addTerminalWeights connects pixel p to the terminals. fromSource is the
// cost of cutting p away from the source (labelling it background), toSink
// the cost of labelling it foreground. Only their difference affects the
// cut, so the shared part is dropped to keep capacities non-negative.
func (g *graph) addTerminalWeights(p int, fromSource, toSink float64) {
	shared := min(fromSource, toSink)
	fromSource -= shared
	toSink -= shared
	if fromSource > 0 {
		g.addEdge(g.source, p, fromSource, 0)
	}
	if toSink > 0 {
		g.addEdge(p, g.sink, toSink, 0)
	}
}

// addPairWeight links two neighbouring pixels with a symmetric capacity.
func (g *graph) addPairWeight(p, q int, w float64) {
	if w <= 0 {
		return
	}
	g.addEdge(p, q, w, w)
}

// bfs builds the level graph over residual edges and reports whether the
// sink is reachable.
func (g *graph) bfs() bool {
	for i := range g.level {
		g.level[i] = -1
	}
	g.queue = g.queue[:0]
	g.level[g.source] = 0
	g.queue = append(g.queue, int32(g.source))
	for qi := 0; qi < len(g.queue); qi++ {
		u := g.queue[qi]
		for e := g.head[u]; e >= 0; e = g.next[e] {
			v := g.to[e]
			if g.cap[e] > flowEpsilon && g.level[v] < 0 {
				g.level[v] = g.level[u] + 1
				g.queue = append(g.queue, v)
			}
		}
	}
	return g.level[g.sink] >= 0
}

// maxFlow runs Dinic's algorithm and returns the flow value. Augmenting
// paths are walked iteratively so long paths across large crops do not grow
// the goroutine stack.
func (g *graph) maxFlow() float64 {
	total := 0.0
	path := make([]int32, 0, 64)
	for g.bfs() {
		copy(g.iter, g.head)
		path = path[:0]
		u := int32(g.source)
		for {
			if int(u) == g.sink {
				f := g.cap[path[0]]
				for _, e := range path[1:] {
					f = min(f, g.cap[e])
				}
				cut := -1
				for i, e := range path {
					g.cap[e] -= f
					g.cap[e^1] += f
					if cut < 0 && g.cap[e] <= flowEpsilon {
						cut = i
					}
				}
				total += f
				// resume from the tail of the first saturated edge
				path = path[:cut]
				u = g.tail(path)
				continue
			}

			e := g.iter[u]
			for ; e >= 0; e = g.next[e] {
				v := g.to[e]
				if g.cap[e] > flowEpsilon && g.level[v] == g.level[u]+1 {
					break
				}
			}
			g.iter[u] = e
			if e >= 0 {
				path = append(path, e)
				u = g.to[e]
				continue
			}

			// dead end: retire u and step back
			g.level[u] = -1
			if len(path) == 0 {
				break
			}
			last := path[len(path)-1]
			path = path[:len(path)-1]
			u = g.to[last^1]
			g.iter[u] = g.next[g.iter[u]]
		}
	}
	return total
}

// tail returns the node the next path edge starts from.
func (g *graph) tail(path []int32) int32 {
	if len(path) == 0 {
		return int32(g.source)
	}
	return g.to[path[len(path)-1]]
}

// sourceSide reports, after maxFlow, which nodes remain reachable from the
// source through residual edges.
func (g *graph) sourceSide() []bool {
	seen := make([]bool, g.n)
	g.queue = g.queue[:0]
	seen[g.source] = true
	g.queue = append(g.queue, int32(g.source))
	for qi := 0; qi < len(g.queue); qi++ {
		u := g.queue[qi]
		for e := g.head[u]; e >= 0; e = g.next[e] {
			v := g.to[e]
			if g.cap[e] > flowEpsilon && !seen[v] {
				seen[v] = true
				g.queue = append(g.queue, v)
			}
		}
	}
	return seen
}
