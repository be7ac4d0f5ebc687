/*
Package dsp allows to build and execute real-time DSP graphs.

Concept

The graph is executed in blocks: fixed-size chunks of samples produced on
the deadline of an audio device callback. Every graph has two kinds of
goroutines:

    Audio goroutine - the only one that processes blocks and touches topology;
    Control goroutines - any number of them, they build and mutate graphs.

The audio goroutine never blocks, never waits on a lock and never
disposes objects inline. Control goroutines communicate with it through
two lock-free queues owned by NodeManager: the task queue and the
deletion queue.

Nodes and pins

Node is a unit of per-block computation. It embeds *Base and owns input
and output pins:

    OutputPin - one channel of the node's computed block;
    InputPin - pulls from at most one output pin;
    MultiInputPin - pulls from any number of output pins.

Evaluation is demand-driven. Pulling an output pin processes its node if
it wasn't processed in the current block, so a node pulled by many
consumers runs once per block. Unconnected input pins pull nil, which
nodes treat as silence.

Root processes

NodeManager runs root processes once per block, in registration order.
Only nodes reachable from a root process are executed:

    m.RegisterRootProcess(output)

A node with side effects that nobody pulls never runs unless it's
registered as a root process.

Block cycle

The device callback calls NodeManager.Process with device buffers. For
every block that fits into the callback frames, the manager:

    applies pending tasks;
    reclaims released objects;
    advances the block index;
    runs root processes;
    publishes block index and sample time.

Sample rate and block size changes are applied as tasks, so every live
node is notified before its next Process.

Ownership

Objects shared with the audio goroutine are owned with safe.Owner. Owner
never disposes an object on the control goroutine: Release posts it to
the deletion queue and the audio goroutine disposes it at the next block
boundary. Nodes are disposed with Own:

    gain := node.NewGain(m)
    owner := dsp.Own(m, gain)
    ...
    owner.Release()
*/
package dsp
