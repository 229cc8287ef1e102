/*
Package node provides audio nodes for phonograph graphs.

Sources:

    Oscillator - periodic waveform with frequency, detune and amplitude params;
    ConstantSource - constant signal driven by offset param;
    SampledAudio - plays decoded signal, optionally looped;
    Function - fills output with user provided function.

Processors:

    Gain, Delay, BiquadFilter, DynamicsCompressor, Convolver,
    StereoPanner, ADSR, Recorder.

Sources embed phonograph.Scheduler and stay silent until started.
Processors render whenever they are pulled. Signal processing is done
with algo-dsp primitives, every buffer they need is allocated by the
node constructor.
*/
package node
